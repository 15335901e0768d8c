package models

// ThemeCategory - группа тем для мастера настройки.
type ThemeCategory struct {
	Name   string   `json:"name"`
	Themes []string `json:"themes"`
}

// ThemeCategories - фиксированный каталог тем.
var ThemeCategories = []ThemeCategory{
	{Name: "Fantasy & Magic", Themes: []string{
		"Space Explorer", "Dragon Rider", "Fairy Princess", "Wizard Apprentice",
		"Mermaid/Merman", "Unicorn Keeper", "Forest Elf", "Royal Knight",
		"Cloud Walker", "Time Traveler",
	}},
	{Name: "Professions", Themes: []string{
		"Astronaut", "Doctor", "Firefighter", "Pilot", "Chef", "Scientist",
		"Veterinarian", "Detective", "Construction Builder", "Teacher",
		"Artist", "Musician", "F1 Driver",
	}},
	{Name: "Sports & Action", Themes: []string{
		"Cricket Captain", "Football Star", "Gymnast", "Ninja Warrior",
		"Super Hero", "Archer", "Scuba Diver", "Mountain Climber",
		"Skateboarder", "Karate Master",
	}},
	{Name: "History & Culture", Themes: []string{
		"Maharaja/Maharani", "Viking Warrior", "Egyptian Pharaoh", "Samurai",
		"Cowboy/Cowgirl", "Pirate Captain", "Greek God/Goddess", "Explorer",
	}},
	{Name: "Nature & Animals", Themes: []string{
		"Jungle King/Queen", "Dinosaur Tamer", "Wolf Pack Leader", "Eagle Flyer",
		"Ocean Guardian", "Safari Ranger", "Butterfly Whisperer",
	}},
}

// PricingTier - тариф на странице цен.
type PricingTier struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Price     string   `json:"price"`
	Features  []string `json:"features"`
	IsPopular bool     `json:"isPopular,omitempty"`
	CTA       string   `json:"cta"`
}

var PricingTiers = []PricingTier{
	{
		ID: "free", Name: "Preview", Price: "Free",
		Features: []string{`1 Free "Photoshoot" Preview`, "Watermarked Portrait", "No High-Res Download"},
		CTA:      "Try Now",
	},
	{
		ID: "pay-per", Name: "Digital Pack", Price: "₹99",
		Features:  []string{"High-Res PDF Storybook", "Unlocks All Gallery Photos", "Print-Ready Quality (300 DPI)", "No Watermarks"},
		IsPopular: true,
		CTA:       "Buy Now",
	},
	{
		ID: "sub", Name: "Kidzy Club", Price: "₹499/yr",
		Features: []string{"Unlimited Downloads", "Access to All Themes", "Priority Fast Processing", "Cancel Anytime"},
		CTA:      "Join Club",
	},
	{
		ID: "print", Name: "Hardcover", Price: "₹1,499",
		Features: []string{"Physical Hardcover Book", "Delivered to your Door", "Includes Digital Copy", "Premium Paper"},
		CTA:      "Order Print",
	},
}

// PurchaseOffer - цена и описание разовой покупки в рупиях.
type PurchaseOffer struct {
	Type        PurchaseType `json:"type"`
	AmountINR   int64        `json:"amount"`
	Description string       `json:"description"`
}

// PurchaseOffers - цены, по которым открывается оплата.
var PurchaseOffers = map[PurchaseType]PurchaseOffer{
	PurchaseTypeStory:   {Type: PurchaseTypeStory, AmountINR: 99, Description: "Digital Storybook PDF"},
	PurchaseTypeGallery: {Type: PurchaseTypeGallery, AmountINR: 99, Description: "High-Res Gallery Pack"},
}

// GalleryScenario - фиксированный сценарий фотосессии.
type GalleryScenario struct {
	Label  string `json:"label"`
	Prompt string `json:"prompt"`
}

var GalleryScenarios = []GalleryScenario{
	{Label: "Wide Angle Scene", Prompt: "Wide angle full body shot, standing confidently in the environment, epic background"},
	{Label: "Close-up Portrait", Prompt: "Extreme close up portrait, smiling happily, looking at camera, shallow depth of field"},
	{Label: "Action Shot", Prompt: "Dynamic action pose, running or flying or jumping, high energy, motion blur"},
	{Label: "With Companion", Prompt: "Interacting with a friendly magical creature or robot or animal relevant to the theme"},
}

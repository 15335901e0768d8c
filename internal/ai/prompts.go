package ai

import (
	"fmt"

	"kidzy-server/shared/models"
)

// FallbackDescription используется, когда анализ фото не удался.
const FallbackDescription = "A happy child"

const analyzePrompt = "Analyze this image of a child. Describe their physical appearance in detail to help an artist draw a portrait. " +
	"Focus on: Hair style/color, Eye color, Skin tone, Facial structure, and distinct features. " +
	"Return a concise comma-separated list of traits."

func avatarPrompt(cfg models.StoryConfig, description string) string {
	return fmt.Sprintf(`Transform this photo into a cinematic fantasy portrait.
Subject: A %d year old %s.
Physical Description: %s.
Costume/Theme: %s.
Style: High quality, movie poster style, cinematic lighting, highly detailed.
IMPORTANT: Preserve the facial features and likeness of the child in the input image as much as possible, while integrating them into the fantasy theme.`,
		cfg.Age, cfg.Gender, description, cfg.Theme)
}

func avatarFallbackPrompt(cfg models.StoryConfig, description string) string {
	return fmt.Sprintf(`Cinematic studio photoshoot of a %d year old %s.
Character Description: %s.
Costume: %s.
Style: High-end photography, 8k resolution, cinematic lighting, photorealistic, highly detailed, Disney-Pixar realism.
Pose: Confident and heroic.`,
		cfg.Age, cfg.Gender, description, cfg.Theme)
}

func outlinePrompt(cfg models.StoryConfig) string {
	buddy := "A magical friend"
	if cfg.BuddyName != "" {
		buddy = fmt.Sprintf("Sidekick named %s (%s)", cfg.BuddyName, cfg.BuddyType)
	}
	return fmt.Sprintf(`Create a fun, engaging children's story (exactly %d pages) for a %d year old %s named %s.
Theme: %s.
Buddy: %s.

Structure the story in exactly %d pages with this narrative arc:
Page 1: The Hook/Introduction (Setting the scene and introducing the character).
Page 2: The Adventure Begins (Something magical or exciting happens).
Page 3: The Challenge (A small puzzling moment or fun obstacle).
Page 4: The Climax (Solving the problem with the buddy).
Page 5: Happy Ending (Success and celebration).

STYLE: The text should be "bubbly", fun, rhythmic, and simple for a child to read. Use excitement!

For each page, provide:
1. The story text (2-3 sentences max).
2. A simple visual description of actions and setting (focus on main character, minimize background clutter).

Structure the response as a valid JSON object matching the schema.`,
		StoryPageCount, cfg.Age, cfg.Gender, cfg.ChildName, cfg.Theme, buddy, StoryPageCount)
}

func coverPrompt(title string, cfg models.StoryConfig) string {
	return fmt.Sprintf(`Cover art for a children's book titled "%s". Theme: %s. Character: %s. Style: Vibrant, colorful, Disney-Pixar style.`,
		title, cfg.Theme, cfg.Description)
}

func lineArtPrompt(scene, character string) string {
	return fmt.Sprintf(`Create a CHILDREN'S COLORING PAGE based on this scene.
Scene: %s.
Character: %s (Adapt the reference character into this style).

STRICT VISUAL STYLE:
- THICK, BOLD, CLEAN black outlines only.
- NO SHADING, NO TEXTURE, NO GRAYSCALE, NO HATCHING.
- SIMPLE CARTOON STYLE (like a Disney junior coloring book).
- Minimal background (focus on the character).
- White background.`, scene, character)
}

const colorizePrompt = `Color this line art image (first image).
Use the character reference (second image) to match colors/style perfectly.
Style: Vibrant 3D animated movie style, Pixar style, high quality, cinematic lighting.
Keep the composition and lines of the first image exactly as they are, just add color.`

func variationPrompt(cfg models.StoryConfig, shot string) string {
	return fmt.Sprintf(`Photoshoot session continued.
Subject: A %d year old %s, described as %s.
Theme: %s.
Specific Shot: %s.
Style: High-end photography, 8k resolution, cinematic lighting, photorealistic.`,
		cfg.Age, cfg.Gender, cfg.Description, cfg.Theme, shot)
}

// outlineSchema - форма ответа для генерации сюжета.
var outlineSchema = &Schema{
	Type: SchemaObject,
	Properties: map[string]*Schema{
		"title": {Type: SchemaString},
		"pages": {
			Type: SchemaArray,
			Items: &Schema{
				Type: SchemaObject,
				Properties: map[string]*Schema{
					"id":               {Type: SchemaInteger},
					"text":             {Type: SchemaString},
					"sceneDescription": {Type: SchemaString},
				},
				Required: []string{"id", "text", "sceneDescription"},
			},
		},
	},
	Required: []string{"title", "pages"},
}

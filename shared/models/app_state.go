package models

import "fmt"

// AppState - экран, на котором находится пользователь.
type AppState string

const (
	AppStateLanding           AppState = "LANDING"
	AppStateLogin             AppState = "LOGIN"
	AppStateSignup            AppState = "SIGNUP"
	AppStateDashboard         AppState = "DASHBOARD"
	AppStateConfig            AppState = "CONFIG"
	AppStateStoryView         AppState = "STORY_VIEW"
	AppStatePhotoshootGallery AppState = "PHOTOSHOOT_GALLERY"
	AppStatePricing           AppState = "PRICING"
	AppStateInfoPage          AppState = "INFO_PAGE"
)

// NavigationEvent - действие пользователя или системы, меняющее экран.
type NavigationEvent string

const (
	NavEventStartStory      NavigationEvent = "START_STORY"
	NavEventAuthGained      NavigationEvent = "AUTH_GAINED"
	NavEventAuthLost        NavigationEvent = "AUTH_LOST"
	NavEventLogout          NavigationEvent = "LOGOUT"
	NavEventStoryCreated    NavigationEvent = "STORY_CREATED"
	NavEventStoryOpened     NavigationEvent = "STORY_OPENED"
	NavEventPhotoshoot      NavigationEvent = "PHOTOSHOOT"
	NavEventShowPricing     NavigationEvent = "SHOW_PRICING"
	NavEventShowInfo        NavigationEvent = "SHOW_INFO"
	NavEventShowLogin       NavigationEvent = "SHOW_LOGIN"
	NavEventShowSignup      NavigationEvent = "SHOW_SIGNUP"
	NavEventBackToDashboard NavigationEvent = "BACK_TO_DASHBOARD"
	NavEventHome            NavigationEvent = "HOME"
)

// Transition вычисляет следующий экран. authenticated - есть ли активный пользователь
// после события. Неизвестное событие возвращает ErrInvalidInput.
func (s AppState) Transition(event NavigationEvent, authenticated bool) (AppState, error) {
	switch event {
	case NavEventStartStory:
		if !authenticated {
			return AppStateLogin, nil
		}
		return AppStateConfig, nil
	case NavEventAuthGained:
		if s == AppStateLogin || s == AppStateSignup {
			return AppStateDashboard, nil
		}
		return s, nil
	case NavEventAuthLost:
		if s == AppStateDashboard {
			return AppStateLanding, nil
		}
		return s, nil
	case NavEventLogout, NavEventHome:
		return AppStateLanding, nil
	case NavEventStoryCreated, NavEventStoryOpened:
		return AppStateStoryView, nil
	case NavEventPhotoshoot:
		return AppStatePhotoshootGallery, nil
	case NavEventShowPricing:
		return AppStatePricing, nil
	case NavEventShowInfo:
		return AppStateInfoPage, nil
	case NavEventShowLogin:
		return AppStateLogin, nil
	case NavEventShowSignup:
		return AppStateSignup, nil
	case NavEventBackToDashboard:
		if !authenticated {
			return AppStateLanding, nil
		}
		return AppStateDashboard, nil
	}
	return s, fmt.Errorf("%w: unknown navigation event %q", ErrInvalidInput, event)
}

package sheet

import (
	"github.com/dshills/sheetcontrols/internal/config"
	"github.com/dshills/sheetcontrols/internal/config/schema"
)

// Setting group names.
const (
	GroupArtGallery     = "artGallerySettings"
	GroupFadeOpacity    = "sheetFadeOpacity"
	GroupFadeImages     = "fadeSheetImages"
	GroupActorImages    = "useActorSheetImages"
	GroupWelcomeMessage = "showWelcomeMessage"
	GroupAccentColor    = "JTCSAccentColor"
)

// Values of the fadeSheetImages group.
const (
	FadeBackground = "fadeBackground"
	FadeAll        = "fadeAll"
)

// SettingsEvent is the broadcast raised when the art gallery settings change.
const SettingsEvent = "updateJTCSSettings"

// SettingsOrigin is the origin attached to art gallery broadcasts.
const SettingsOrigin = "JTCSSettings"

const assetFolder = "modules/journal-to-canvas-slideshow/assets/"

const fadeOpacityHint = "Change the opacity of the background when the sheet fades. 0 means completely transparent, 100 means completely opaque."

// ArtGalleryDefaults returns the default art gallery record.
func ArtGalleryDefaults() map[string]any {
	return map[string]any{
		"sheetSettings": map[string]any{
			"name": "Sheet Types",
			"hint": "Which types of sheets would you like to show clickable image controls?",
			"modularChoices": map[string]any{
				"journalEntry": true,
				"actor":        true,
				"item":         true,
			},
		},
		"colorSchemeData": map[string]any{
			"name": "Custom Color Scheme",
			"hint": "What colors would you like to use on parts of the JTCS UI? This will affect things like buttons, checkboxes, borders, etc.",
			"colors": map[string]any{
				"accentColor":     "#44c3fd",
				"backgroundColor": "#ffffff",
			},
			"propertyNames": map[string]any{
				"accentColor":     "--JTCS-accent-color",
				"backgroundColor": "--JTCS-background-color",
			},
			"colorVariations": map[string]any{
				"accentColor":     true,
				"backgroundColor": true,
			},
			"autoContrast": true,
		},
		"dedicatedDisplayData": map[string]any{
			"journal": map[string]any{"name": "Art Journal", "value": "Art", "hint": "Art Journal"},
			"scene":   map[string]any{"name": "Art Scene", "value": "Art", "hint": "Art Scene"},
		},
		"sheetFadeOpacityData": map[string]any{
			"name":  "Sheet Fade Opacity",
			"hint":  fadeOpacityHint,
			"value": 0.5,
		},
		"fadeSheetImagesData": map[string]any{
			"name":   "Fade Sheet Images",
			"hint":   "When fading a JournalEntry, Actor, or Item sheet, should the images fade as well as the background?",
			"chosen": FadeAll,
			"choices": map[string]any{
				FadeBackground: "Fade Background and UI Only",
				FadeAll:        "Fade Background, UI AND Images",
			},
		},
		"indicatorColorData": map[string]any{
			"name": "Tile Indicator Colors",
			"hint": "Choose colors for the tile indicators, and the tile accent colors in the settings",
			"colors": map[string]any{
				"frameTileColor":    "#cf8f40",
				"artTileColor":      "#5e97ff",
				"unlinkedTileColor": "#aaf3a2",
				"defaultTileColor":  "#ff458c",
			},
			"propertyNames": map[string]any{
				"frameTileColor":    "--data-frame-color",
				"artTileColor":      "--data-art-color",
				"unlinkedTileColor": "--data-unlinked-color",
				"defaultTileColor":  "--data-default-color",
			},
		},
		"defaultTileImages": map[string]any{
			"name": "Default Tile Images",
			"hint": "Choose images for the Art and Frame tiles when they're first created, and for art tiles to reset to when the tile is 'cleared'",
			"paths": map[string]any{
				"frameTilePath": assetFolder + "Bounding_Tile.webp",
				"artTilePath":   assetFolder + "DarkBackground.webp",
			},
		},
	}
}

// Groups returns the built-in setting groups.
func Groups() []schema.Group {
	return []schema.Group{
		{
			Name:    GroupArtGallery,
			Kind:    schema.KindRecord,
			Default: ArtGalleryDefaults(),
			Label:   "JTCS Art Gallery Settings",
			Scope:   schema.ScopeWorld,
			Event:   SettingsEvent,
			Origin:  SettingsOrigin,
		},
		{
			Name:    GroupFadeOpacity,
			Kind:    schema.KindNumber,
			Default: 50,
			Min:     schema.Bound(0),
			Max:     schema.Bound(100),
			Step:    10,
			Label:   "Sheet Fade Opacity",
			Hint:    fadeOpacityHint,
			Scope:   schema.ScopeClient,
		},
		{
			Name:    GroupFadeImages,
			Kind:    schema.KindEnum,
			Default: FadeAll,
			Choices: []string{FadeBackground, FadeAll},
			Label:   "Fade Sheet Images",
			Hint:    "Whether images fade along with the sheet background.",
			Scope:   schema.ScopeClient,
		},
		{
			Name:    GroupActorImages,
			Kind:    schema.KindBool,
			Default: false,
			Label:   "Use Actor Sheet Images",
			Hint:    "Let clicking an image on actor and item sheets display it.",
			Scope:   schema.ScopeClient,
		},
		{
			Name:    GroupWelcomeMessage,
			Kind:    schema.KindBool,
			Default: true,
			Label:   "Show Welcome Message",
			Scope:   schema.ScopeClient,
		},
		{
			Name:    GroupAccentColor,
			Kind:    schema.KindString,
			Default: "#44c3fdff",
			Label:   "Accent Color",
			Hint:    "Choose an accent color to use in the JTCS UI",
			Scope:   schema.ScopeClient,
			Event:   SettingsEvent,
			Origin:  SettingsOrigin,
		},
	}
}

// RegisterSettings registers the built-in groups with store.
func RegisterSettings(store *config.Store) error {
	for _, g := range Groups() {
		if err := store.Register(g); err != nil {
			return err
		}
	}
	return nil
}

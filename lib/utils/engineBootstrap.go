package utils

import (
	"github.com/ether/lastupdated-go/lib/apply"
	"github.com/ether/lastupdated-go/lib/classifier"
	"github.com/ether/lastupdated-go/lib/engine"
	"github.com/ether/lastupdated-go/lib/placeholder"
	"github.com/ether/lastupdated-go/lib/settings"
	"github.com/ether/lastupdated-go/lib/throttle"
)

// GetRegistry returns the built-in tokens plus the configured custom tokens.
func GetRegistry(retrievedSettings settings.Settings) (*placeholder.Registry, error) {
	custom, err := placeholder.CompileCustomTokens(retrievedSettings.CustomTokens)
	if err != nil {
		return nil, err
	}
	return placeholder.NewDefaultRegistry(custom...)
}

func GetEngineOptions(retrievedSettings settings.Settings) (engine.Options, error) {
	loc, err := retrievedSettings.Location()
	if err != nil {
		return engine.Options{}, err
	}
	movePolicy, err := classifier.ParseMovePolicy(retrievedSettings.Pagination.MovePolicy)
	if err != nil {
		return engine.Options{}, err
	}
	return engine.Options{
		Location:     loc,
		HiddenPrefix: retrievedSettings.Pagination.HiddenPrefix,
		MovePolicy:   movePolicy,
		Throttle: throttle.Options{
			ChangeDelay:    retrievedSettings.Throttle.ChangeDelay(),
			SaveDelay:      retrievedSettings.Throttle.SaveDelay(),
			RefreshFlagged: retrievedSettings.Throttle.RefreshFlagged,
		},
		Renderer: apply.RendererOptions{
			Size:      retrievedSettings.Identicon.Size,
			PixelSize: retrievedSettings.Identicon.PixelSize,
			Palette:   retrievedSettings.Identicon.Palette,
			CacheSize: retrievedSettings.Identicon.CacheSize,
		},
		WriteConcurrency: retrievedSettings.WriteConcurrency,
		ResetOnClose:     retrievedSettings.ResetOnClose,
	}, nil
}

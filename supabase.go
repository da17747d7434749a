package notees

import (
	"go.uber.org/zap"

	"github.com/MrEthical07/notees/supabase"
)

// NewSupabaseApp builds an App whose identity provider, posts table and media
// bucket are one Supabase client. The session is persisted to
// cfg.CredentialsFile unless opts set another storage. Closing the App closes
// the client.
func NewSupabaseApp(cfg Config, logger *zap.Logger, opts ...supabase.Option) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := cfg.Supabase.Validate(); err != nil {
		return nil, err
	}

	var storage *supabase.FileStorage
	if cfg.CredentialsFile != "" {
		storage = supabase.NewFileStorage(cfg.CredentialsFile)
	} else {
		fs, err := supabase.DefaultFileStorage()
		if err != nil {
			return nil, err
		}
		storage = fs
	}

	base := []supabase.Option{
		supabase.WithStorage(storage),
		supabase.WithLogger(logger.Named("supabase")),
	}
	client, err := supabase.New(cfg.Supabase, append(base, opts...)...)
	if err != nil {
		return nil, err
	}

	app, err := New().
		WithConfig(cfg).
		WithLogger(logger).
		WithProvider(client.Auth()).
		WithPosts(client.Posts(), client.Media()).
		onClose(client.Close).
		Build()
	if err != nil {
		client.Close()
		return nil, err
	}
	return app, nil
}

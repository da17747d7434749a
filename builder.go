package notees

import (
	"go.uber.org/zap"

	"github.com/MrEthical07/notees/nav"
	"github.com/MrEthical07/notees/posts"
	"github.com/MrEthical07/notees/session"
)

// Builder assembles an [App]. Set everything, call Build once.
type Builder struct {
	config   Config
	provider session.Provider
	repo     posts.Repository
	media    posts.MediaStore
	logger   *zap.Logger
	closers  []func()

	built bool
}

func New() *Builder {
	return &Builder{
		config: DefaultConfig(),
		logger: zap.NewNop(),
	}
}

func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cfg
	return b
}

// WithProvider sets the identity provider behind the session store.
func (b *Builder) WithProvider(p session.Provider) *Builder {
	b.provider = p
	return b
}

// WithPosts enables the post feed. media may be nil, in which case drafts
// with attachments fail with posts.ErrNoMediaStore.
func (b *Builder) WithPosts(repo posts.Repository, media posts.MediaStore) *Builder {
	b.repo = repo
	b.media = media
	return b
}

func (b *Builder) WithLogger(l *zap.Logger) *Builder {
	if l != nil {
		b.logger = l
	}
	return b
}

// onClose registers fn to run after the app's own resources are released.
func (b *Builder) onClose(fn func()) *Builder {
	b.closers = append(b.closers, fn)
	return b
}

// Build validates the config and wires the store, router, guard and feed.
// Nothing runs until [App.Start].
func (b *Builder) Build() (*App, error) {
	if b.built {
		return nil, ErrBuilderUsed
	}
	if b.provider == nil {
		return nil, ErrNoProvider
	}
	if err := b.config.Validate(); err != nil {
		return nil, err
	}
	b.built = true

	app := &App{
		cfg:      b.config,
		provider: b.provider,
		logger:   b.logger,
		store: session.NewStore(b.provider,
			session.WithLogger(b.logger.Named("session")),
			session.WithLookupTimeout(b.config.LookupTimeout),
		),
		router:   nav.New(b.config.Routes.Home),
		closers:  b.closers,
		feedWake: make(chan struct{}, 1),
	}
	if b.repo != nil {
		app.posts = posts.NewService(b.repo, b.media, posts.WithLogger(b.logger.Named("posts")))
		app.feed = posts.NewFeed(app.posts)
	}
	return app, nil
}

package metadata

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// Session is one open handle on the metadata tool.
type Session interface {
	WriteMetadata(path string, fields Fields) error
	ReadMetadata(path string) ([]Fields, error)
	Close() error
}

type Opener interface {
	Open() (Session, error)
}

type OpenerFunc func() (Session, error)

func (f OpenerFunc) Open() (Session, error) { return f() }

// SessionRunner runs fn with a session that is released when fn returns.
type SessionRunner interface {
	With(ctx context.Context, fn func(Session) error) error
}

// Pool bounds how many sessions are open at once. Each call to With opens a
// fresh session and closes it afterwards, whatever fn returns.
type Pool struct {
	opener Opener
	slots  chan struct{}
	logger *zap.Logger
}

func NewPool(opener Opener, size int, logger *zap.Logger) *Pool {
	if size < 1 {
		size = 1
	}
	return &Pool{
		opener: opener,
		slots:  make(chan struct{}, size),
		logger: logger,
	}
}

func (p *Pool) With(ctx context.Context, fn func(Session) error) error {
	select {
	case p.slots <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-p.slots }()

	session, err := p.opener.Open()
	if err != nil {
		return fmt.Errorf("failed to open metadata session: %w", err)
	}
	defer func() {
		if err := session.Close(); err != nil {
			p.logger.Warn("Failed to close metadata session", zap.Error(err))
		}
	}()

	return fn(session)
}

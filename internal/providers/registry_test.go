package providers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/janus/internal/domain/repository"
)

type fakeAdapter struct{ name string }

func (f *fakeAdapter) Name() string { return f.name }

func (f *fakeAdapter) AuthorizeURL(repository.ProviderSettings, AuthorizeParams) (string, error) {
	return "https://example.test/authorize", nil
}

func (f *fakeAdapter) Exchange(context.Context, repository.ProviderSettings, ExchangeInput) (*ExternalIdentity, error) {
	return &ExternalIdentity{SubjectID: "sub"}, nil
}

func TestRegistryGet(t *testing.T) {
	r := NewRegistry()
	r.Register(&fakeAdapter{name: "google"})
	r.Register(&fakeAdapter{name: "github"})

	a, err := r.Get("google")
	require.NoError(t, err)
	assert.Equal(t, "google", a.Name())

	_, err = r.Get("twitter")
	assert.ErrorIs(t, err, ErrUnknownProvider)
}

func TestRegistryNamesSorted(t *testing.T) {
	r := NewRegistry()
	r.Register(&fakeAdapter{name: "microsoft"})
	r.Register(&fakeAdapter{name: "apple"})
	r.Register(&fakeAdapter{name: "google"})

	assert.Equal(t, []string{"apple", "google", "microsoft"}, r.Names())
}

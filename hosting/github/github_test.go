package github_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ghplat "github.com/byte4ever/repo_publisher/hosting/github"
)

func TestNew_valid(t *testing.T) {
	t.Parallel()

	pf, err := ghplat.New(ghplat.Config{
		AccessToken: "tok",
	})

	require.NoError(t, err)
	assert.NotNil(t, pf)
}

func TestNew_missing_token(t *testing.T) {
	t.Parallel()

	pf, err := ghplat.New(ghplat.Config{})

	assert.Nil(t, pf)
	assert.ErrorContains(t, err, "access token")
}

func TestNew_enterprise(t *testing.T) {
	t.Parallel()

	pf, err := ghplat.New(ghplat.Config{
		AccessToken:    "tok",
		EnterpriseHost: "git.corp.example.com",
	})

	require.NoError(t, err)
	assert.NotNil(t, pf)
}

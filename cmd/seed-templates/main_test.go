package main

import (
	"context"
	"io/fs"
	"strings"
	"testing"
	"testing/fstest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	app "github.com/R3E-Network/framestore/internal/app"
	"github.com/R3E-Network/framestore/internal/app/domain/template"
	"github.com/R3E-Network/framestore/internal/auth"
	"github.com/R3E-Network/framestore/pkg/logger"
	"github.com/R3E-Network/framestore/pkg/testutil"
)

func newApp(t *testing.T) *app.Application {
	t.Helper()
	tokens, err := auth.NewTokens(strings.Repeat("s", 32), "framestore", time.Hour)
	require.NoError(t, err)
	application, err := app.New(nil, app.Options{Tokens: tokens}, logger.Discard())
	require.NoError(t, err)
	return application
}

func TestSeedBuiltinTemplates(t *testing.T) {
	application := newApp(t)
	source, err := fs.Sub(builtin, "templates")
	require.NoError(t, err)

	n, err := seed(context.Background(), application, testutil.Wallet(9), source)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	list, err := application.Templates.List(context.Background(), template.Filter{})
	require.NoError(t, err)
	assert.Len(t, list, 2)
	for _, tpl := range list {
		assert.True(t, tpl.Manifest.Valid(), tpl.Name)
	}
}

func TestSeedRejectsInvalidManifest(t *testing.T) {
	application := newApp(t)
	source := fstest.MapFS{
		"a.yaml": {Data: []byte("name: Broken\ncategory: misc\ntemplate_data:\n  fc:frame: v1\n")},
	}
	n, err := seed(context.Background(), application, testutil.Wallet(9), source)
	assert.Error(t, err)
	assert.Equal(t, 0, n)
}

func TestLoadSeedDefaultsName(t *testing.T) {
	source := fstest.MapFS{
		"starter.yml": {Data: []byte("category: misc\ntemplate_data:\n  fc:frame: vNext\n")},
	}
	in, err := loadSeed(source, "starter.yml")
	require.NoError(t, err)
	assert.Equal(t, "starter", in.Name)
	assert.Equal(t, "vNext", in.Manifest.Version.Value)

	_, err = loadSeed(fstest.MapFS{"x.yaml": {Data: []byte("name: x\n")}}, "x.yaml")
	assert.Error(t, err)
}

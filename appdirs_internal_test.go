package main

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/oddbloke/steelersconfig/internal/config"
)

func TestDeleteAll(t *testing.T) {
	// given
	ad := appDirs{
		config: t.TempDir(),
		data:   t.TempDir(),
		log:    t.TempDir(),
	}
	paths := []string{ad.config, ad.data, ad.log}
	for _, p := range paths {
		x := filepath.Join(p, "dummy.txt")
		if err := os.WriteFile(x, []byte("dummy"), 0644); err != nil {
			t.Fatal(err)
		}
	}
	for _, p := range paths {
		assert.True(t, fileExists(p))
	}
	// when
	err := ad.deleteAll()
	// then
	if assert.NoError(t, err) {
		for _, p := range paths {
			assert.False(t, fileExists(p))
		}
	}
}

func TestInitDirs(t *testing.T) {
	root := t.TempDir()
	ad := appDirs{
		config: filepath.Join(root, "config"),
		data:   filepath.Join(root, "data"),
		log:    filepath.Join(root, "log"),
	}
	t.Run("should create log folder", func(t *testing.T) {
		fn, err := ad.initLogFile()
		if assert.NoError(t, err) {
			assert.Equal(t, filepath.Join(ad.log, logFileName), fn)
			assert.True(t, fileExists(ad.log))
		}
	})
	t.Run("should write default config file", func(t *testing.T) {
		fn, err := ad.initConfigFile()
		if assert.NoError(t, err) {
			assert.Equal(t, filepath.Join(ad.config, configFileName), fn)
			cfg, err := config.Load(fn)
			if assert.NoError(t, err) {
				assert.Equal(t, config.Default(), cfg)
			}
		}
	})
	t.Run("should keep existing config file", func(t *testing.T) {
		fn := ad.configFile()
		if err := os.WriteFile(fn, []byte("send_retries: 3\n"), 0644); err != nil {
			t.Fatal(err)
		}
		got, err := ad.initConfigFile()
		if assert.NoError(t, err) {
			assert.Equal(t, fn, got)
			cfg, err := config.Load(fn)
			if assert.NoError(t, err) {
				assert.Equal(t, 3, cfg.SendRetries)
			}
		}
	})
	t.Run("should create data folder", func(t *testing.T) {
		dsn, err := ad.initDSN()
		if assert.NoError(t, err) {
			assert.True(t, strings.HasPrefix(dsn, "file:"))
			assert.True(t, strings.HasSuffix(dsn, dbFileName))
			assert.True(t, fileExists(ad.data))
		}
	})
}

func fileExists(name string) bool {
	_, err := os.Stat(name)
	if err == nil {
		return true
	}
	if errors.Is(err, os.ErrNotExist) {
		return false
	}
	panic(err)
}

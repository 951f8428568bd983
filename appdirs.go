package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	xappdirs "github.com/chasinglogic/appdirs"

	"github.com/oddbloke/steelersconfig/internal/config"
)

const (
	appName        = "steelersconfig"
	configFileName = "config.yaml"
	dbFileName     = "steelersconfig.sqlite"
	logFileName    = "steelersconfig.log"
)

// appDirs represents the app's local directories for storing logs etc.
type appDirs struct {
	config string
	data   string
	log    string
}

func newAppDirs() appDirs {
	ad := xappdirs.New(appName)
	x := appDirs{
		config: ad.UserConfig(),
		data:   ad.UserData(),
		log:    ad.UserLog(),
	}
	return x
}

func (ad appDirs) deleteAll() error {
	for _, p := range []string{ad.log, ad.data, ad.config} {
		if err := os.RemoveAll(p); err != nil {
			return err
		}
		fmt.Printf("Deleted %s\n", p)
	}
	return nil
}

func (ad appDirs) configFile() string {
	return filepath.Join(ad.config, configFileName)
}

// initConfigFile returns the path of the config file
// and writes a default one when it does not exist yet.
func (ad appDirs) initConfigFile() (string, error) {
	fn := ad.configFile()
	_, err := os.Stat(fn)
	if err == nil {
		return fn, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return "", err
	}
	if err := os.MkdirAll(ad.config, os.ModePerm); err != nil {
		return "", err
	}
	if err := config.Default().Save(fn); err != nil {
		return "", err
	}
	return fn, nil
}

func (ad appDirs) initLogFile() (string, error) {
	if err := os.MkdirAll(ad.log, os.ModePerm); err != nil {
		return "", err
	}
	return filepath.Join(ad.log, logFileName), nil
}

func (ad appDirs) initDSN() (string, error) {
	if err := os.MkdirAll(ad.data, os.ModePerm); err != nil {
		return "", err
	}
	dsn := fmt.Sprintf("file:%s", filepath.Join(ad.data, dbFileName))
	return dsn, nil
}

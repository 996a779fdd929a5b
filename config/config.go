/*
 * EliasDB
 *
 * Copyright 2016 Matthias Ladkau. All rights reserved.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

/*
Package config contains the configuration of a PageGraph store.

The configuration is a flat key value map which is read from a JSON or TOML
file. Missing values are filled in from DefaultConfig. Values can be
overwritten by environment variables with the prefix PAGEGRAPH_ which may
also be given in a .env file.
*/
package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"devt.de/krotik/common/errorutil"
	"devt.de/krotik/common/fileutil"
	"devt.de/krotik/common/logutil"
	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/pkg/errors"
)

// Global variables
// ================

/*
DefaultConfigFile is the default config file which will be used to configure PageGraph
*/
var DefaultConfigFile = "pagegraph.config.json"

/*
EnvPrefix is the prefix of all environment variables which overwrite config values
*/
const EnvPrefix = "PAGEGRAPH"

/*
Known configuration options for PageGraph
*/
const (
	MaxBufferSize     = "MaxBufferSize"
	MaxBlockSize      = "MaxBlockSize"
	ConnectorType     = "ConnectorType"
	LocationDatastore = "LocationDatastore"
	SelectPolicy      = "SelectPolicy"
	SplitPolicy       = "SplitPolicy"
	PolicySeed        = "PolicySeed"
	LogLevel          = "LogLevel"
	EnableMetrics     = "EnableMetrics"
)

/*
DefaultConfig is the defaut configuration
*/
var DefaultConfig = map[string]interface{}{
	MaxBufferSize:     100,
	MaxBlockSize:      8388608,
	ConnectorType:     "bolt",
	LocationDatastore: "db",
	SelectPolicy:      "firstavailable",
	SplitPolicy:       "half",
	PolicySeed:        1,
	LogLevel:          "Info",
	EnableMetrics:     true,
}

/*
Config is the actual config which is used
*/
var Config map[string]interface{}

/*
envSettings are the config values which can be set through the environment.
*/
type envSettings struct {
	MaxBufferSize     string `envconfig:"MAX_BUFFER_SIZE"`
	MaxBlockSize      string `envconfig:"MAX_BLOCK_SIZE"`
	ConnectorType     string `envconfig:"CONNECTOR_TYPE"`
	LocationDatastore string `envconfig:"LOCATION_DATASTORE"`
	SelectPolicy      string `envconfig:"SELECT_POLICY"`
	SplitPolicy       string `envconfig:"SPLIT_POLICY"`
	PolicySeed        string `envconfig:"POLICY_SEED"`
	LogLevel          string `envconfig:"LOG_LEVEL"`
	EnableMetrics     string `envconfig:"ENABLE_METRICS"`
}

/*
LoadConfigFile loads a given config file. If the config file does not exist it is
created with the default options. Files with a .toml extension are read as
TOML all other files as JSON.
*/
func LoadConfigFile(configfile string) error {
	var err error

	if strings.ToLower(filepath.Ext(configfile)) == ".toml" {
		Config, err = loadTOMLConfig(configfile)
	} else {
		Config, err = fileutil.LoadConfig(configfile, DefaultConfig)
	}

	return err
}

/*
loadTOMLConfig loads a TOML config file or writes the default config if the
file does not exist.
*/
func loadTOMLConfig(configfile string) (map[string]interface{}, error) {
	data := make(map[string]interface{})

	ok, err := fileutil.PathExists(configfile)
	if err != nil {
		return nil, err
	}

	if !ok {
		f, err := os.Create(configfile)
		if err != nil {
			return nil, err
		}
		defer f.Close()

		for k, v := range DefaultConfig {
			data[k] = v
		}

		return data, toml.NewEncoder(f).Encode(data)
	}

	if _, err := toml.DecodeFile(configfile, &data); err != nil {
		return nil, errors.Wrapf(err, "Could not parse config file %v", configfile)
	}

	// Make sure all required configuration values are set

	for k, v := range DefaultConfig {
		if dv, ok := data[k]; !ok || dv == nil {
			data[k] = v
		}
	}

	return data, nil
}

/*
LoadDefaultConfig loads the default configuration.
*/
func LoadDefaultConfig() {
	data := make(map[string]interface{})
	for k, v := range DefaultConfig {
		data[k] = v
	}

	Config = data
}

/*
LoadEnv overwrites config values with values from the environment. Variables
are read from an optional .env file first. Variables which are already set in
the environment are not changed by the file.
*/
func LoadEnv(envfile string) error {
	var env envSettings

	if Config == nil {
		LoadDefaultConfig()
	}

	if envfile != "" {
		if ok, _ := fileutil.PathExists(envfile); ok {
			if err := godotenv.Load(envfile); err != nil {
				return errors.Wrapf(err, "Could not read environment file %v", envfile)
			}
		}
	}

	if err := envconfig.Process(EnvPrefix, &env); err != nil {
		return errors.Wrap(err, "Could not read environment")
	}

	values := map[string]string{
		MaxBufferSize:     env.MaxBufferSize,
		MaxBlockSize:      env.MaxBlockSize,
		ConnectorType:     env.ConnectorType,
		LocationDatastore: env.LocationDatastore,
		SelectPolicy:      env.SelectPolicy,
		SplitPolicy:       env.SplitPolicy,
		PolicySeed:        env.PolicySeed,
		LogLevel:          env.LogLevel,
		EnableMetrics:     env.EnableMetrics,
	}

	// Check all values before the config is changed

	for _, k := range []string{MaxBufferSize, MaxBlockSize, PolicySeed} {
		if v := values[k]; v != "" {
			if _, err := strconv.ParseInt(v, 10, 64); err != nil {
				return errors.Errorf("Invalid number for config key %v: %v", k, v)
			}
		}
	}

	if v := values[EnableMetrics]; v != "" {
		if _, err := strconv.ParseBool(v); err != nil {
			return errors.Errorf("Invalid boolean for config key %v: %v", EnableMetrics, v)
		}
	}

	for k, v := range values {
		if v != "" {
			Config[k] = v
		}
	}

	return nil
}

/*
ConfigureLogging adds a log sink for all PageGraph loggers which writes
messages of the configured log level to a given writer.
*/
func ConfigureLogging(w io.Writer) error {
	level := logutil.StringToLoglevel(Str(LogLevel))

	if level == "" {
		return fmt.Errorf("Unknown log level: %v", Str(LogLevel))
	}

	logutil.GetLogger("pagegraph").AddLogSink(level, logutil.SimpleFormatter(), w)

	return nil
}

// Helper functions
// ================

/*
Str reads a config value as a string value.
*/
func Str(key string) string {
	return fmt.Sprint(Config[key])
}

/*
Int reads a config value as an int value.
*/
func Int(key string) int64 {

	// JSON numbers are read as floats

	if f, ok := Config[key].(float64); ok {
		return int64(f)
	}

	ret, err := strconv.ParseInt(fmt.Sprint(Config[key]), 10, 64)

	errorutil.AssertTrue(err == nil,
		fmt.Sprintf("Could not parse config key %v: %v", key, err))

	return ret
}

/*
Bool reads a config value as a boolean value.
*/
func Bool(key string) bool {
	ret, err := strconv.ParseBool(fmt.Sprint(Config[key]))

	errorutil.AssertTrue(err == nil,
		fmt.Sprintf("Could not parse config key %v: %v", key, err))

	return ret
}

// SPDX-FileCopyrightText: 2021 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"os"
	"runtime"
	"strings"
	"time"

	"emperror.dev/errors"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/cast"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/xmidt-org/arrange"
	"github.com/xmidt-org/sallust"
	"go.uber.org/zap"
)

const (
	envPrefix = "AIRLOCK"

	defaultPort    = "8080"
	defaultBaseURL = "https://id.simpli-fi-os.com"
	defaultTTL     = 300 * time.Second
)

func setupFlagSet(fs *pflag.FlagSet) {
	fs.StringP("file", "f", "", "the configuration file to use.  Overrides the search path.")
	fs.BoolP("debug", "d", false, "enables debug logging.  Overrides configuration.")
	fs.BoolP("version", "v", false, "print version and exit")
}

func setup(args []string) (*viper.Viper, *zap.Logger, error) {
	l, err := zap.NewDevelopment() // initial value
	if err != nil {
		return nil, l, fmt.Errorf("failed to create zap logger: %w", err)
	}

	fs := pflag.NewFlagSet(applicationName, pflag.ContinueOnError)
	setupFlagSet(fs)
	err = fs.Parse(args)
	if err != nil {
		return nil, l, fmt.Errorf("failed to create parse args: %w", err)
	}
	if printVersion, _ := fs.GetBool("version"); printVersion {
		printVersionInfo()
	}

	v := viper.New()
	setDefaults(v)

	if file, _ := fs.GetString("file"); len(file) > 0 {
		v.SetConfigFile(file)
		err = v.ReadInConfig()
	} else {
		v.SetConfigName(applicationName)
		v.AddConfigPath(fmt.Sprintf("/etc/%s", applicationName))
		v.AddConfigPath(fmt.Sprintf("$HOME/.%s", applicationName))
		v.AddConfigPath(".")
		err = v.ReadInConfig()
		// env-only deployments ship no file at all.
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			err = nil
		}
	}
	if err != nil {
		return v, l, fmt.Errorf("failed to read config file: %w", err)
	}

	if err = bindEnvironment(v, os.LookupEnv); err != nil {
		return v, l, err
	}

	if debug, _ := fs.GetBool("debug"); debug {
		v.Set("logging.level", "DEBUG")
	}

	var c sallust.Config
	err = v.UnmarshalKey("logging", &c, arrange.ComposeDecodeHooks(sallust.DecodeHook))
	if err != nil {
		return v, l, err
	}

	l, err = c.Build()
	return v, l, err
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("servers.primary.address", ":"+defaultPort)
	v.SetDefault("redirect.baseURL", defaultBaseURL)
	v.SetDefault("cache.ttl", defaultTTL)
	v.SetDefault("logging.level", "INFO")
	v.SetDefault("logging.encoding", "json")
	v.SetDefault("logging.outputPaths", []string{"stdout"})
	v.SetDefault("logging.errorOutputPaths", []string{"stderr"})
}

// bindEnvironment applies the well-known deployment variables on top of the
// configuration file. Any other key may be set as AIRLOCK_<KEY>.
func bindEnvironment(v *viper.Viper, lookup func(string) (string, bool)) error {
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if port, ok := lookup("PORT"); ok && port != "" {
		v.Set("servers.primary.address", ":"+strings.TrimPrefix(port, ":"))
	}
	if baseURL, ok := lookup("BASE_URL"); ok && baseURL != "" {
		v.Set("redirect.baseURL", baseURL)
	}
	if ttl, ok := lookup("CACHE_TTL"); ok && ttl != "" {
		d, err := parseTTL(ttl)
		if err != nil {
			return errors.WrapWithDetails(err, "invalid CACHE_TTL", "value", ttl)
		}
		v.Set("cache.ttl", d)
	}
	return nil
}

// parseTTL reads a bare integer as seconds and anything else as a duration.
func parseTTL(s string) (time.Duration, error) {
	if seconds, err := cast.ToInt64E(s); err == nil {
		return time.Duration(seconds) * time.Second, nil
	}
	return cast.ToDurationE(s)
}

func validateConfig(configs ...interface{}) error {
	validate := validator.New()
	for _, c := range configs {
		if err := validate.Struct(c); err != nil {
			return errors.Wrap(err, "invalid configuration")
		}
	}
	return nil
}

func printVersionInfo() {
	fmt.Fprintf(os.Stdout, "%s:\n", applicationName)
	fmt.Fprintf(os.Stdout, "  version: \t%s\n", Version)
	fmt.Fprintf(os.Stdout, "  go version: \t%s\n", runtime.Version())
	fmt.Fprintf(os.Stdout, "  built time: \t%s\n", BuildTime)
	fmt.Fprintf(os.Stdout, "  git commit: \t%s\n", GitCommit)
	fmt.Fprintf(os.Stdout, "  os/arch: \t%s/%s\n", runtime.GOOS, runtime.GOARCH)
	os.Exit(0)
}

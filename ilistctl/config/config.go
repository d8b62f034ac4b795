// Copyright 2018 The gVisor Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package config provides basic infrastructure to set configuration settings
// for ilistctl. Each setting that can be changed from the command line must
// have a field in Config with a "flag" tag naming the flag.
package config

import (
	"fmt"
	"reflect"
	"time"

	"gvisor.dev/intrusive/pkg/log"
	"gvisor.dev/intrusive/pkg/refs"
)

// Config holds configuration that is shared by all ilistctl commands.
type Config struct {
	// ConfigFile is the path of a TOML file holding flag values. Flags set
	// on the command line take precedence over the file.
	ConfigFile string `flag:"config"`

	// Debug indicates that debug logging should be enabled.
	Debug bool `flag:"debug"`

	// LogFormat is the log format for messages written to stderr.
	LogFormat string `flag:"log-format"`

	// DebugLog is the path of an additional log file. If it ends with '/',
	// a file is created inside the directory with a default name.
	DebugLog string `flag:"debug-log"`

	// DebugLogFormat is the log format for DebugLog.
	DebugLogFormat string `flag:"debug-log-format"`

	// ReferenceLeak sets the reference leak check mode.
	ReferenceLeak refs.LeakMode `flag:"ref-leak-mode"`

	// ProgressInterval is the minimum time between two progress messages of
	// long running commands.
	ProgressInterval time.Duration `flag:"progress-interval"`
}

func (c *Config) validate() error {
	for _, f := range []struct{ name, value string }{
		{"log-format", c.LogFormat},
		{"debug-log-format", c.DebugLogFormat},
	} {
		switch f.value {
		case "text", "json":
		default:
			return fmt.Errorf("invalid --%s %q, must be text or json", f.name, f.value)
		}
	}
	if c.ProgressInterval < 0 {
		return fmt.Errorf("--progress-interval must not be negative: %v", c.ProgressInterval)
	}
	return nil
}

// Log logs important aspects of the configuration to the given log function.
func (c *Config) Log() {
	log.Infof("Config:")
	obj := reflect.ValueOf(c).Elem()
	st := obj.Type()
	for i := 0; i < st.NumField(); i++ {
		f := st.Field(i)
		name, ok := f.Tag.Lookup("flag")
		if !ok {
			continue
		}
		log.Infof("\t%s (--%s): %s", f.Name, name, getVal(obj.Field(i)))
	}
}

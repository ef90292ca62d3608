/*
 * Copyright 2025 tomoncle.
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package types

import "strings"

// Common illegal/default values used by enums.
const (
	IllegalValue = -1
	IllegalName  = "unknown"
	IllegalDesc  = "unknown"
)

// BaseEnum represents a basic enum contract used by domain types.
type BaseEnum interface {
	IsValid() bool
	Number() int
	String() string
	Desc() string
	Name() string
}

// Mode is the environment the service runs in.
type Mode int

const (
	ModeDev Mode = iota
	ModeTest
	ModeProd
)

var _ BaseEnum = ModeDev

var modeNames = map[Mode][2]string{
	ModeDev:  {"DEV", "development"},
	ModeTest: {"TEST", "test"},
	ModeProd: {"PROD", "production"},
}

// ParseMode maps DEV, TEST or PROD (any case) to a Mode.
func ParseMode(s string) Mode {
	s = strings.ToUpper(strings.TrimSpace(s))
	for m, names := range modeNames {
		if names[0] == s {
			return m
		}
	}
	return Mode(IllegalValue)
}

func (m Mode) IsValid() bool {
	_, ok := modeNames[m]
	return ok
}

func (m Mode) Number() int { return int(m) }

func (m Mode) Name() string {
	if names, ok := modeNames[m]; ok {
		return names[0]
	}
	return IllegalName
}

func (m Mode) String() string { return m.Name() }

func (m Mode) Desc() string {
	if names, ok := modeNames[m]; ok {
		return names[1]
	}
	return IllegalDesc
}

// MarshalText renders the mode by name in JSON and YAML.
func (m Mode) MarshalText() ([]byte, error) {
	return []byte(m.Name()), nil
}

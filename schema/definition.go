/*
 * MIT License
 *
 * Copyright (c) 2024 nabbar
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 */

package schema

import "strings"

// ParamType is a message parameter's in-memory type.
type ParamType uint8

const (
	TypeString ParamType = iota
	TypeInteger
	TypeAddress
	TypeTimespec
)

func parseType(s string) (ParamType, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "string":
		return TypeString, true
	case "integer":
		return TypeInteger, true
	case "address":
		return TypeAddress, true
	case "timespec":
		return TypeTimespec, true
	}
	return TypeString, false
}

// Flag is one bit of a parameter's presence/shape rules.
type Flag uint8

const (
	FlagRequired Flag = 1 << iota
	FlagEmpty
	FlagForbidden
	FlagOptional
	FlagDefined
	FlagAllowed
)

func parseFlags(s string) (Flag, error) {
	var out Flag
	for _, tok := range strings.Split(s, ",") {
		tok = strings.ToLower(strings.TrimSpace(tok))
		if tok == "" {
			continue
		}
		switch tok {
		case "required":
			out |= FlagRequired
		case "empty":
			out |= FlagEmpty
		case "forbidden":
			out |= FlagForbidden
		case "optional":
			out |= FlagOptional
		case "defined":
			out |= FlagDefined
		case "allowed":
			out |= FlagAllowed
		default:
			return 0, errUnknownFlag(tok)
		}
	}
	return out, nil
}

// ParamDef is one [parameter-name] section of a command's .conf file.
type ParamDef struct {
	Type  ParamType
	Flags Flag
}

func (p ParamDef) required() bool  { return p.Flags&FlagRequired != 0 }
func (p ParamDef) forbidden() bool { return p.Flags&FlagForbidden != 0 }

// Definition is the fully-loaded message definition for one command.
type Definition struct {
	Command string
	Params  map[string]ParamDef
}

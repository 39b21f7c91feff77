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

import (
	"gopkg.in/ini.v1"

	"github.com/nabbar/eventdispatcher/errs"
	"github.com/nabbar/eventdispatcher/message"
)

// loadFile parses one "<command>.conf" file into a Definition.
func loadFile(path, command string) (*Definition, error) {
	f, err := ini.Load(path)
	if err != nil {
		return nil, errs.New(errs.KindInit, ErrorParse, err).WithField("path", path)
	}

	def := &Definition{Command: command, Params: map[string]ParamDef{}}

	for _, sec := range f.Sections() {
		if sec.Name() == ini.DefaultSection {
			continue
		}

		name := message.CanonicalName(sec.Name())

		typ, ok := parseType(sec.Key("type").String())
		if !ok {
			return nil, errs.New(errs.KindInit, ErrorUnknownType, nil).
				WithField("path", path).WithField("parameter", name)
		}

		flags, ferr := parseFlags(sec.Key("flags").String())
		if ferr != nil {
			return nil, ferr
		}

		def.Params[name] = ParamDef{Type: typ, Flags: flags}
	}

	return def, nil
}

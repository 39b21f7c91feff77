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
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// FlagPathToMessageDefinitions names the command-line/config option
// carrying the colon-separated message-definition search path.
const FlagPathToMessageDefinitions = "path-to-message-definitions"

// RegisterFlags declares --path-to-message-definitions on flags and binds
// it into v, defaulting to DefaultSearchPath.
func RegisterFlags(flags *pflag.FlagSet, v *viper.Viper) {
	flags.String(FlagPathToMessageDefinitions, DefaultSearchPath, "colon-separated search path for <command>.conf message definitions")
	_ = v.BindPFlag(FlagPathToMessageDefinitions, flags.Lookup(FlagPathToMessageDefinitions))
}

// NewRegistryFromViper builds a Registry using v's resolved search path.
func NewRegistryFromViper(v *viper.Viper) *Registry {
	path := v.GetString(FlagPathToMessageDefinitions)
	return NewRegistry(path)
}

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

//go:build linux

package main

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/nabbar/eventdispatcher/schema"
)

// newRootCommand wires the three demo scenarios this binary exercises end
// to end: a line-protocol echo server with schema validation, a UDP
// secret-code server, and a subprocess pipeline with a tee fan-out.
func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "eventdispatcherd",
		Short: "reactor demo: message echo server, UDP secret-code server, subprocess pipeline",
	}

	root.PersistentFlags().String("path-to-message-definitions", schema.DefaultSearchPath,
		"colon-separated search path for <command>.conf schema files")
	viper.SetDefault("path-to-message-definitions", schema.DefaultSearchPath)
	_ = viper.BindPFlag("path-to-message-definitions", root.PersistentFlags().Lookup("path-to-message-definitions"))

	root.AddCommand(newServeCommand())
	root.AddCommand(newUDPCommand())
	root.AddCommand(newPipelineCommand())
	return root
}

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
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nabbar/eventdispatcher/communicator"
	"github.com/nabbar/eventdispatcher/logger"
	"github.com/nabbar/eventdispatcher/pipeline"
)

func newPipelineCommand() *cobra.Command {
	var message string

	cmd := &cobra.Command{
		Use:   "pipeline",
		Short: "run a three-node subprocess pipeline: one source tee'd into two sinks",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPipeline(message)
		},
	}

	cmd.Flags().StringVar(&message, "message", "hello from eventdispatcherd\n", "text the source node prints before it is tee'd to both sinks")
	return cmd
}

func runPipeline(message string) error {
	log := logger.New("eventdispatcherd.pipeline")

	root := &pipeline.Node{
		Name:    "source",
		Command: "printf",
		Args:    []string{message},
		Next: []*pipeline.Node{
			{Name: "upper", Command: "tr", Args: []string{"a-z", "A-Z"}},
			{Name: "count", Command: "wc", Args: []string{"-c"}},
		},
	}

	tree, err := pipeline.New(root)
	if err != nil {
		return err
	}
	if err := tree.Start(); err != nil {
		return err
	}

	comm := communicator.New()
	code, werr := tree.Wait(comm)
	if werr != nil {
		return werr
	}
	if code != 0 {
		return fmt.Errorf("source node exited with code %d", code)
	}

	log.Info("pipeline completed", logger.Fields{"exit-code": code})
	return nil
}

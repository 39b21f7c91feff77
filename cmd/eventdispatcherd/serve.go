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
	"github.com/spf13/viper"

	"github.com/nabbar/eventdispatcher/communicator"
	"github.com/nabbar/eventdispatcher/dispatcher"
	"github.com/nabbar/eventdispatcher/logger"
	"github.com/nabbar/eventdispatcher/message"
	"github.com/nabbar/eventdispatcher/schema"
	"github.com/nabbar/eventdispatcher/stream"
)

func newServeCommand() *cobra.Command {
	var listenAddr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "run a line-protocol server that validates PING messages and answers them with PONG",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(listenAddr, viper.GetString("path-to-message-definitions"))
		},
	}

	cmd.Flags().StringVar(&listenAddr, "listen", "127.0.0.1:8087", "address to listen on")
	return cmd
}

func runServe(listenAddr, searchPath string) error {
	log := logger.New("eventdispatcherd.serve")
	comm := communicator.New()
	registry := schema.NewRegistry(searchPath)
	defer registry.Close()

	onAccept := func(fd int, network stream.Network) {
		d := dispatcher.New(registry)

		msgr, err := message.NewMessenger("client", fd, message.HandlerFunc(d.Dispatch))
		if err != nil {
			log.Error("failed to wrap accepted connection", logger.Fields{"error": err.Error()})
			return
		}

		_, _ = d.Add("ping", dispatcher.MatchCommand("PING"), 0, func(m *message.Message) {
			reply := message.New("PONG")
			if v, ok := m.GetString("nonce"); ok {
				reply.Set("nonce", v)
			}
			if serr := msgr.Send(reply); serr != nil {
				log.Warn("failed to send reply", logger.Fields{"error": serr.Error()})
			}
		})
		_, _ = d.Add("catch-all", dispatcher.MatchAlways(), 15, func(m *message.Message) {
			log.Debug("unhandled message", logger.Fields{"command": m.Command})
		})

		if !comm.AddConnection(msgr) {
			log.Error("failed to register accepted connection")
		}
	}

	listener, err := stream.NewListener("echo-listener", stream.TCP4, listenAddr, stream.Plain, nil, onAccept)
	if err != nil {
		return err
	}
	if !comm.AddConnection(listener) {
		return fmt.Errorf("failed to register listener on %s", listenAddr)
	}

	log.Info("listening", logger.Fields{"address": listenAddr, "schema-path": searchPath})
	return comm.Run()
}

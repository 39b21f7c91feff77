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
	"net"

	"github.com/spf13/cobra"

	"github.com/nabbar/eventdispatcher/communicator"
	"github.com/nabbar/eventdispatcher/datagram"
	"github.com/nabbar/eventdispatcher/logger"
)

func newUDPCommand() *cobra.Command {
	var listenAddr, secret string

	cmd := &cobra.Command{
		Use:   "udp",
		Short: "run a UDP server that silently drops datagrams missing the configured secret",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUDP(listenAddr, secret)
		},
	}

	cmd.Flags().StringVar(&listenAddr, "listen", "127.0.0.1:8088", "address to bind")
	cmd.Flags().StringVar(&secret, "secret", "", "required secret prefix on every inbound datagram; empty disables the check")
	return cmd
}

func runUDP(listenAddr, secret string) error {
	log := logger.New("eventdispatcherd.udp")
	comm := communicator.New()

	srv, err := datagram.NewServer("udp-server", listenAddr, nil, secret, func(data []byte, from *net.UDPAddr) {
		log.Info("datagram received", logger.Fields{"from": from.String(), "bytes": len(data)})
	})
	if err != nil {
		return err
	}
	if !comm.AddConnection(srv) {
		return fmt.Errorf("failed to register udp server on %s", listenAddr)
	}

	log.Info("listening", logger.Fields{"address": listenAddr, "secret-required": secret != ""})
	return comm.Run()
}

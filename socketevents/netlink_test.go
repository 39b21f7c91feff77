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

package socketevents

import (
	"encoding/binary"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"golang.org/x/sys/unix"
)

// encodeInetDiagMsg builds one raw inet_diag_msg reply, wrapped in its own
// nlmsghdr, for a socket at srcIP:port in the given TCP state.
func encodeInetDiagMsg(seq uint32, state uint8, srcIP [4]byte, port uint16) []byte {
	bodyLen := unix.NLMSG_HDRLEN + sizeofInetDiagMsg
	buf := make([]byte, bodyLen)
	encodeNlmsghdr(buf, uint32(bodyLen), sockDiagByFamily, 0, seq, 0)

	msg := buf[unix.NLMSG_HDRLEN:]
	msg[0] = unix.AF_INET
	msg[1] = state
	binary.BigEndian.PutUint16(msg[4:6], port)
	copy(msg[8:12], srcIP[:])
	return buf
}

func encodeNlmsgDone(seq uint32) []byte {
	buf := make([]byte, unix.NLMSG_HDRLEN)
	encodeNlmsghdr(buf, uint32(unix.NLMSG_HDRLEN), unix.NLMSG_DONE, 0, seq, 0)
	return buf
}

var _ = Describe("netlink wire format", func() {
	It("aligns lengths up to NLMSG_ALIGNTO", func() {
		Expect(nlmsgAlign(0)).To(Equal(0))
		Expect(nlmsgAlign(1)).To(Equal(4))
		Expect(nlmsgAlign(4)).To(Equal(4))
		Expect(nlmsgAlign(5)).To(Equal(8))
	})

	It("builds a dump request addressed to SOCK_DIAG_BY_FAMILY with NLM_F_DUMP set", func() {
		req := buildInetDiagDump(7)
		hdr := decodeNlmsghdr(req)

		Expect(hdr.Type).To(Equal(uint16(sockDiagByFamily)))
		Expect(hdr.Flags & unix.NLM_F_DUMP).To(Equal(uint16(unix.NLM_F_DUMP)))
		Expect(hdr.Flags & unix.NLM_F_REQUEST).To(Equal(uint16(unix.NLM_F_REQUEST)))
		Expect(hdr.Seq).To(Equal(uint32(7)))
		Expect(int(hdr.Len)).To(Equal(len(req)))

		body := req[unix.NLMSG_HDRLEN:]
		Expect(body[0]).To(Equal(uint8(unix.AF_INET)))
		Expect(body[1]).To(Equal(uint8(unix.IPPROTO_TCP)))
		Expect(binary.LittleEndian.Uint32(body[4:8])).To(Equal(uint32(1 << tcpListen)))
	})

	It("parses a LISTEN reply followed by NLMSG_DONE", func() {
		reply := encodeInetDiagMsg(3, tcpListen, [4]byte{127, 0, 0, 1}, 8080)
		done := encodeNlmsgDone(3)

		replies, isDone, err := parseInetDiagDump(append(reply, done...))
		Expect(err).NotTo(HaveOccurred())
		Expect(isDone).To(BeTrue())
		Expect(replies).To(HaveLen(1))
		Expect(replies[0].state).To(Equal(uint8(tcpListen)))
		Expect(replies[0].port).To(Equal(uint16(8080)))
		Expect(replies[0].srcIP).To(Equal([4]byte{127, 0, 0, 1}))
	})

	It("ignores a non-LISTEN reply without failing the parse", func() {
		reply := encodeInetDiagMsg(1, 1 /* TCP_ESTABLISHED */, [4]byte{127, 0, 0, 1}, 443)
		replies, isDone, err := parseInetDiagDump(reply)
		Expect(err).NotTo(HaveOccurred())
		Expect(isDone).To(BeFalse())
		Expect(replies).To(HaveLen(1))
		Expect(replies[0].state).NotTo(Equal(uint8(tcpListen)))
	})

	It("rejects a message shorter than its own header", func() {
		_, _, err := parseInetDiagDump([]byte{1, 2, 3})
		Expect(err).To(HaveOccurred())
	})
})

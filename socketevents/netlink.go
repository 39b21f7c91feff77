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

	"golang.org/x/sys/unix"

	"github.com/nabbar/eventdispatcher/errs"
)

func errShortMessage() error {
	return errs.New(errs.KindProtocol, ErrorShortMessage, nil)
}

// sockDiagByFamily is the netlink message type used against
// NETLINK_SOCK_DIAG for every address family's diag protocol, including
// inet_diag; x/sys/unix does not name it, so it is defined here the way the
// kernel UAPI headers do.
const sockDiagByFamily = 20

// tcpListen is the TCP_LISTEN value of enum tcp_state, used both in the
// outgoing idiag_states bitmask and to double check an incoming reply.
const tcpListen = 10

// inetDiagSockID mirrors struct inet_diag_sockid: the (local, remote)
// endpoint pair a diag request/reply carries. Only the local half is used
// here since registrations key on the listening side.
type inetDiagSockID struct {
	SPort  uint16
	DPort  uint16
	Src    [4]uint32
	Dst    [4]uint32
	If     uint32
	Cookie [2]uint32
}

// inetDiagReqV2 mirrors struct inet_diag_req_v2, the SOCK_DIAG_BY_FAMILY
// request body for AF_INET/AF_INET6.
type inetDiagReqV2 struct {
	Family   uint8
	Protocol uint8
	Ext      uint8
	Pad      uint8
	States   uint32
	ID       inetDiagSockID
}

// inetDiagMsg mirrors struct inet_diag_msg, the reply body carrying one
// socket's current state.
type inetDiagMsg struct {
	Family  uint8
	State   uint8
	Timer   uint8
	Retrans uint8
	ID      inetDiagSockID
	Expires uint32
	RQueue  uint32
	WQueue  uint32
	UID     uint32
	Inode   uint32
}

const (
	sizeofInetDiagSockID = 2 + 2 + 4*4 + 4*4 + 4 + 4*2
	sizeofInetDiagReqV2  = 4 + 4 + sizeofInetDiagSockID
	sizeofInetDiagMsg    = 4 + sizeofInetDiagSockID + 4*5
)

// nlmsgAlign rounds n up to unix.NLMSG_ALIGNTO, the padding every netlink
// message and attribute is aligned to.
func nlmsgAlign(n int) int {
	return (n + unix.NLMSG_ALIGNTO - 1) &^ (unix.NLMSG_ALIGNTO - 1)
}

// encodeNlmsghdr serializes a nlmsghdr header. Netlink headers are in host
// byte order; this writes them little-endian, which matches the kernel on
// little-endian hosts only.
func encodeNlmsghdr(buf []byte, length uint32, msgType, flags uint16, seq, pid uint32) {
	binary.LittleEndian.PutUint32(buf[0:4], length)
	binary.LittleEndian.PutUint16(buf[4:6], msgType)
	binary.LittleEndian.PutUint16(buf[6:8], flags)
	binary.LittleEndian.PutUint32(buf[8:12], seq)
	binary.LittleEndian.PutUint32(buf[12:16], pid)
}

type nlmsghdr struct {
	Len   uint32
	Type  uint16
	Flags uint16
	Seq   uint32
	Pid   uint32
}

func decodeNlmsghdr(buf []byte) nlmsghdr {
	return nlmsghdr{
		Len:   binary.LittleEndian.Uint32(buf[0:4]),
		Type:  binary.LittleEndian.Uint16(buf[4:6]),
		Flags: binary.LittleEndian.Uint16(buf[6:8]),
		Seq:   binary.LittleEndian.Uint32(buf[8:12]),
		Pid:   binary.LittleEndian.Uint32(buf[12:16]),
	}
}

// buildInetDiagDump builds one SOCK_DIAG_BY_FAMILY dump request asking for
// every IPv4 TCP socket currently in the LISTEN state. It targets no
// specific socket: the wildcard inetDiagSockID plus NLM_F_DUMP returns every
// match, and the watcher filters replies against its own registrations.
func buildInetDiagDump(seq uint32) []byte {
	bodyLen := unix.NLMSG_HDRLEN + sizeofInetDiagReqV2
	buf := make([]byte, bodyLen)

	encodeNlmsghdr(buf, uint32(bodyLen), sockDiagByFamily, unix.NLM_F_REQUEST|unix.NLM_F_DUMP, seq, 0)

	req := buf[unix.NLMSG_HDRLEN:]
	req[0] = unix.AF_INET
	req[1] = unix.IPPROTO_TCP
	req[2] = 0 // idiag_ext
	req[3] = 0 // pad
	binary.LittleEndian.PutUint32(req[4:8], 1<<tcpListen)
	// the trailing inetDiagSockID is left zeroed: a full wildcard.

	return buf
}

// diagReply is one parsed inet_diag_msg worth reporting to the watcher.
type diagReply struct {
	state uint8
	srcIP [4]byte
	port  uint16
}

// parseInetDiagDump walks a batch of netlink messages returned by the
// kernel for one dump request, extracting every inet_diag_msg payload. It
// returns done=true once a NLMSG_DONE terminator is seen, mirroring the
// message-walking loop used to detect end-of-dump on a SOCK_DIAG socket.
func parseInetDiagDump(data []byte) (replies []diagReply, done bool, err error) {
	if len(data) > 0 && len(data) < unix.NLMSG_HDRLEN {
		return nil, false, errShortMessage()
	}

	offset := 0
	for offset+unix.NLMSG_HDRLEN <= len(data) {
		hdr := decodeNlmsghdr(data[offset:])
		if hdr.Len < unix.NLMSG_HDRLEN {
			return replies, done, errShortMessage()
		}

		msgEnd := offset + int(hdr.Len)
		if msgEnd > len(data) {
			msgEnd = len(data)
		}

		switch hdr.Type {
		case unix.NLMSG_DONE:
			done = true
		case unix.NLMSG_ERROR:
			// errno is the first 4 bytes of the payload; a zero errno is
			// netlink's own ack and not a failure.
			payload := data[offset+unix.NLMSG_HDRLEN : msgEnd]
			if len(payload) >= 4 && int32(binary.LittleEndian.Uint32(payload[0:4])) != 0 {
				return replies, done, errs.New(errs.KindRuntime, ErrorReceive, nil)
			}
		default:
			payload := data[offset+unix.NLMSG_HDRLEN : msgEnd]
			if len(payload) >= sizeofInetDiagMsg {
				var ip [4]byte
				copy(ip[:], payload[8:12])
				port := binary.BigEndian.Uint16(payload[4:6])
				replies = append(replies, diagReply{
					state: payload[1],
					srcIP: ip,
					port:  port,
				})
			}
		}

		offset += nlmsgAlign(int(hdr.Len))
		if hdr.Len == 0 {
			break
		}
	}
	return replies, done, nil
}

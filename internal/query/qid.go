// Copyright 2025 Esteban Alvarez. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package query

import (
	"crypto/rand"
	"encoding/binary"
	"net"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// gregorianOffset100ns is the number of 100ns intervals between the UUID
// epoch (1582-10-15) and the Unix epoch, the standard UUIDv1 timestamp base.
const gregorianOffset100ns = 0x01B21DD213814000

var clockSeq uint32

func init() {
	var b [4]byte
	_, _ = rand.Read(b[:])
	clockSeq = binary.BigEndian.Uint32(b[:])
}

// NewQueryID builds a qid whose node field is the originator's IPv4
// address, zero-padded to 6 bytes, so OriginatorIP inverts it exactly
// (spec.md §8, round-trip law). The timestamp and clock-sequence fields
// keep ids distinguishable across repeated calls from the same host.
func NewQueryID(originatorIP net.IP) uuid.UUID {
	ip4 := originatorIP.To4()
	if ip4 == nil {
		ip4 = net.IPv4zero.To4()
	}

	ts := uint64(time.Now().UnixNano()/100) + gregorianOffset100ns
	seq := atomic.AddUint32(&clockSeq, 1)

	var id uuid.UUID
	binary.BigEndian.PutUint32(id[0:4], uint32(ts))
	binary.BigEndian.PutUint16(id[4:6], uint16(ts>>32))
	binary.BigEndian.PutUint16(id[6:8], uint16(ts>>48)&0x0fff|0x1000) // version 1
	id[8] = byte(seq>>8) | 0x80                                       // RFC4122 variant
	id[9] = byte(seq)
	// id[10:12] left zero; id[12:16] carries the IPv4 address.
	copy(id[12:16], ip4)
	return id
}

// OriginatorIP recovers the IPv4 address NewQueryID embedded in id's node field.
func OriginatorIP(id uuid.UUID) net.IP {
	return net.IPv4(id[12], id[13], id[14], id[15])
}

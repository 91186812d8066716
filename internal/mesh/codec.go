package mesh

import (
	"errors"
	"fmt"
)

// Codec errors. Framing failures are expected traffic on a lossy carrier and
// are logged, not surfaced to the operator.
var (
	ErrHeaderLength = errors.New("unknown header length")
	ErrHeaderType   = errors.New("type byte does not match header length")
	ErrBodyHash     = errors.New("message hash mismatch")
)

// ParseHeader decodes a header segment into a Packet. The body segment, if
// the kind carries one, is attached by the caller (see Parse). All field
// widths are strict: a shorter or longer field invalidates the header.
func ParseHeader(header string) (Packet, error) {
	var p Packet

	switch len(header) {
	case HeaderLenInit:
		if header[typePos] != byte(KindInit) {
			return p, fmt.Errorf("%w: len 9, type %q", ErrHeaderType, header[typePos])
		}
		hop, err := ParseHop(header[6:8])
		if err != nil {
			return p, err
		}
		return Packet{
			Kind:   KindInit,
			Src:    header[0:4],
			InitID: header[4:6],
			Hop:    hop,
		}, nil

	case HeaderLenSOS:
		if header[typePos] != byte(KindSOS) {
			return p, fmt.Errorf("%w: len 11, type %q", ErrHeaderType, header[typePos])
		}
		hop, err := ParseHop(header[9:11])
		if err != nil {
			return p, err
		}
		return Packet{
			Kind: KindSOS,
			Src:  header[0:4],
			Dst:  header[4:8],
			Hop:  hop,
		}, nil

	case HeaderLenStandard:
		kind := Kind(header[typePos])
		if kind != KindBroadcast && kind != KindTargeted {
			return p, fmt.Errorf("%w: len 13, type %q", ErrHeaderType, header[typePos])
		}
		hash, err := ParseHash(header[9:13])
		if err != nil {
			return p, err
		}
		return Packet{
			Kind: kind,
			Src:  header[0:4],
			Dst:  header[4:8],
			Hash: hash,
		}, nil

	case HeaderLenMessage:
		if header[typePos] != byte(KindMessage) {
			return p, fmt.Errorf("%w: len 15, type %q", ErrHeaderType, header[typePos])
		}
		hash, err := ParseHash(header[9:13])
		if err != nil {
			return p, err
		}
		hop, err := ParseHop(header[13:15])
		if err != nil {
			return p, err
		}
		return Packet{
			Kind: KindMessage,
			Src:  header[0:4],
			Dst:  header[4:8],
			Hash: hash,
			Hop:  hop,
		}, nil
	}

	return p, fmt.Errorf("%w: %d bytes", ErrHeaderLength, len(header))
}

// Parse decodes a header plus body pair into a verified Packet. For kinds
// carrying a hash the body is checked against the header's hash field and
// ErrBodyHash is returned on mismatch.
func Parse(header, body string) (Packet, error) {
	p, err := ParseHeader(header)
	if err != nil {
		return p, err
	}
	if p.Kind.HasBody() {
		if HashString(body) != p.Hash {
			return p, fmt.Errorf("%w: header %s, body %s",
				ErrBodyHash, FormatHash(p.Hash), FormatHash(HashString(body)))
		}
		p.Body = body
	}
	return p, nil
}

// Header serializes the packet's header segment in its fixed wire form.
// Note the INIT asymmetry: the type byte trails the hop field.
func (p Packet) Header() string {
	switch p.Kind {
	case KindInit:
		return p.Src + p.InitID + FormatHop(p.Hop) + string(KindInit)
	case KindSOS:
		return p.Src + p.Dst + string(KindSOS) + FormatHop(p.Hop)
	case KindBroadcast, KindTargeted:
		return p.Src + p.Dst + string(p.Kind) + FormatHash(p.Hash)
	case KindMessage:
		return p.Src + p.Dst + string(KindMessage) + FormatHash(p.Hash) + FormatHop(p.Hop)
	}
	return ""
}

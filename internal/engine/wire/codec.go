// Package wire encodes operations and version vectors as JSON for
// transport between replicas. The format is deliberately flat so any
// peer, Go or not, can produce and consume it.
package wire

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/loomtext/loom/internal/engine/buffer"
	"github.com/loomtext/loom/internal/engine/clock"
	"github.com/loomtext/loom/internal/engine/rope"
)

// ErrMalformed indicates JSON that does not decode to a valid message.
var ErrMalformed = errors.New("wire: malformed message")

// EncodeOperation renders op as a JSON object.
func EncodeOperation(op buffer.Operation) (string, error) {
	out := "{}"
	var err error
	if out, err = sjson.Set(out, "replica", int(op.ID.Replica)); err != nil {
		return "", err
	}
	if out, err = sjson.Set(out, "seq", uint64(op.ID.Seq)); err != nil {
		return "", err
	}
	if out, err = sjson.Set(out, "lamport", uint64(op.Lamport)); err != nil {
		return "", err
	}
	if out, err = sjson.SetRaw(out, "version", encodeVersion(op.Version)); err != nil {
		return "", err
	}
	if out, err = sjson.SetRaw(out, "edits", "[]"); err != nil {
		return "", err
	}
	for _, e := range op.Edits {
		edit := "{}"
		if edit, err = sjson.Set(edit, "start", int(e.Range.Start)); err != nil {
			return "", err
		}
		if edit, err = sjson.Set(edit, "end", int(e.Range.End)); err != nil {
			return "", err
		}
		if edit, err = sjson.Set(edit, "text", e.Text); err != nil {
			return "", err
		}
		if out, err = sjson.SetRaw(out, "edits.-1", edit); err != nil {
			return "", err
		}
	}
	return out, nil
}

// DecodeOperation parses a JSON object produced by EncodeOperation.
func DecodeOperation(data string) (buffer.Operation, error) {
	if !gjson.Valid(data) {
		return buffer.Operation{}, fmt.Errorf("%w: invalid json", ErrMalformed)
	}
	root := gjson.Parse(data)
	replica := root.Get("replica")
	seq := root.Get("seq")
	lamport := root.Get("lamport")
	if !replica.Exists() || !seq.Exists() || !lamport.Exists() {
		return buffer.Operation{}, fmt.Errorf("%w: missing identity fields", ErrMalformed)
	}

	version, err := decodeVersion(root.Get("version"))
	if err != nil {
		return buffer.Operation{}, err
	}

	op := buffer.Operation{
		ID: clock.OpID{
			Replica: clock.ReplicaID(replica.Uint()),
			Seq:     clock.Seq(seq.Uint()),
		},
		Version: version,
		Lamport: clock.Lamport(lamport.Uint()),
	}

	var badEdit error
	root.Get("edits").ForEach(func(_, e gjson.Result) bool {
		start := e.Get("start")
		end := e.Get("end")
		if !start.Exists() || !end.Exists() {
			badEdit = fmt.Errorf("%w: edit missing range", ErrMalformed)
			return false
		}
		op.Edits = append(op.Edits, buffer.Edit{
			Range: buffer.Range{
				Start: rope.ByteOffset(start.Int()),
				End:   rope.ByteOffset(end.Int()),
			},
			Text: e.Get("text").String(),
		})
		return true
	})
	if badEdit != nil {
		return buffer.Operation{}, badEdit
	}
	return op, nil
}

// EncodeVersion renders a version vector as a JSON object keyed by
// replica id.
func EncodeVersion(v clock.Version) string {
	return encodeVersion(v)
}

// DecodeVersion parses a JSON object produced by EncodeVersion.
func DecodeVersion(data string) (clock.Version, error) {
	if !gjson.Valid(data) {
		return nil, fmt.Errorf("%w: invalid json", ErrMalformed)
	}
	return decodeVersion(gjson.Parse(data))
}

func encodeVersion(v clock.Version) string {
	out := "{}"
	// Iterate in sorted replica order so equal versions encode
	// identically.
	for _, r := range v.Replicas() {
		out, _ = sjson.Set(out, strconv.Itoa(int(r)), uint64(v.Seq(r)))
	}
	return out
}

func decodeVersion(res gjson.Result) (clock.Version, error) {
	v := clock.NewVersion()
	if !res.Exists() {
		return v, nil
	}
	if !res.IsObject() {
		return nil, fmt.Errorf("%w: version is not an object", ErrMalformed)
	}
	var err error
	res.ForEach(func(key, val gjson.Result) bool {
		id, perr := strconv.ParseUint(key.String(), 10, 16)
		if perr != nil {
			err = fmt.Errorf("%w: bad replica id %q", ErrMalformed, key.String())
			return false
		}
		v[clock.ReplicaID(id)] = clock.Seq(val.Uint())
		return true
	})
	if err != nil {
		return nil, err
	}
	return v, nil
}

// Package keys derives comparable registry keys from a task identity and
// its ordered argument list.
package keys

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/cespare/xxhash/v2"
)

// TaskKey identifies "this task invoked with these arguments". Two keys
// compare equal exactly when the task name and arity match and the argument
// digests match. The name and arity are carried verbatim, so distinct tasks
// can never collide; only the argument digest is probabilistic.
type TaskKey struct {
	Task   string
	Arity  int
	Digest uint64
}

// String returns a stable textual form suitable for snapshot store keys and
// log fields.
func (k TaskKey) String() string {
	return k.Task + "/" + strconv.Itoa(k.Arity) + "/" + strconv.FormatUint(k.Digest, 16)
}

// Encoding tags. Each argument contributes its position, a tag byte, and a
// length-prefixed payload to the digest stream, so reordered or re-split
// argument lists always produce different digests.
const (
	tagNil      = 0x00
	tagString   = 0x01
	tagBool     = 0x02
	tagInt      = 0x03
	tagUint     = 0x04
	tagFloat    = 0x05
	tagBytes    = 0x06
	tagDuration = 0x07
	tagTime     = 0x08
	tagError    = 0x09
	tagStringer = 0x0a
	tagJSON     = 0x0b
	tagOpaque   = 0x0c
)

// Derive produces the TaskKey for a task identity and argument list. It
// never fails: arguments that cannot be encoded canonically fall back to
// their Go-syntax representation.
func Derive(task string, args []any) TaskKey {
	d := xxhash.New()

	var scratch [binary.MaxVarintLen64]byte
	writeUvarint := func(v uint64) {
		n := binary.PutUvarint(scratch[:], v)
		_, _ = d.Write(scratch[:n])
	}
	writeChunk := func(tag byte, payload []byte) {
		_, _ = d.Write([]byte{tag})
		writeUvarint(uint64(len(payload)))
		_, _ = d.Write(payload)
	}

	for i, arg := range args {
		writeUvarint(uint64(i))
		writeArg(writeChunk, arg)
	}

	return TaskKey{
		Task:   task,
		Arity:  len(args),
		Digest: d.Sum64(),
	}
}

func writeArg(writeChunk func(tag byte, payload []byte), arg any) {
	if arg == nil {
		writeChunk(tagNil, nil)
		return
	}

	switch v := arg.(type) {
	case string:
		writeChunk(tagString, []byte(v))
	case bool:
		if v {
			writeChunk(tagBool, []byte{1})
		} else {
			writeChunk(tagBool, []byte{0})
		}
	case int:
		writeChunk(tagInt, strconv.AppendInt(nil, int64(v), 10))
	case int8:
		writeChunk(tagInt, strconv.AppendInt(nil, int64(v), 10))
	case int16:
		writeChunk(tagInt, strconv.AppendInt(nil, int64(v), 10))
	case int32:
		writeChunk(tagInt, strconv.AppendInt(nil, int64(v), 10))
	case int64:
		writeChunk(tagInt, strconv.AppendInt(nil, v, 10))
	case uint:
		writeChunk(tagUint, strconv.AppendUint(nil, uint64(v), 10))
	case uint8:
		writeChunk(tagUint, strconv.AppendUint(nil, uint64(v), 10))
	case uint16:
		writeChunk(tagUint, strconv.AppendUint(nil, uint64(v), 10))
	case uint32:
		writeChunk(tagUint, strconv.AppendUint(nil, uint64(v), 10))
	case uint64:
		writeChunk(tagUint, strconv.AppendUint(nil, v, 10))
	case float32:
		writeChunk(tagFloat, binary.BigEndian.AppendUint64(nil, math.Float64bits(float64(v))))
	case float64:
		writeChunk(tagFloat, binary.BigEndian.AppendUint64(nil, math.Float64bits(v)))
	case []byte:
		writeChunk(tagBytes, v)
	case time.Duration:
		writeChunk(tagDuration, strconv.AppendInt(nil, int64(v), 10))
	case time.Time:
		writeChunk(tagTime, strconv.AppendInt(nil, v.UnixNano(), 10))
	case error:
		writeChunk(tagError, []byte(v.Error()))
	case fmt.Stringer:
		writeChunk(tagStringer, []byte(v.String()))
	default:
		if data, err := json.Marshal(v); err == nil {
			writeChunk(tagJSON, data)
		} else {
			writeChunk(tagOpaque, []byte(fmt.Sprintf("%#v", v)))
		}
	}
}

package widget

import (
	"encoding/json"
	"time"

	"github.com/vmihailenco/msgpack/v5"
)

// RefreshInterval is how often a widget re-runs its script. It serializes to
// a duration string in JSON ("30s", "5m") and accepts either a string or an
// int64 nanosecond count when parsing, so hand-edited files can use whichever
// reads better. Zero means the widget only re-runs on data changes.
type RefreshInterval time.Duration

// Duration returns the underlying time.Duration.
func (r RefreshInterval) Duration() time.Duration {
	return time.Duration(r)
}

// String returns the interval formatted as a duration string.
func (r RefreshInterval) String() string {
	return time.Duration(r).String()
}

// MarshalJSON implements json.Marshaler.
func (r RefreshInterval) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(r).String())
}

// UnmarshalJSON implements json.Unmarshaler.
func (r *RefreshInterval) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		return nil
	}
	if len(b) >= 2 && b[0] == '"' && b[len(b)-1] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		d, err := time.ParseDuration(s)
		if err != nil {
			return err
		}
		*r = RefreshInterval(d)
		return nil
	}
	var n int64
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*r = RefreshInterval(n)
	return nil
}

// EncodeMsgpack implements msgpack.Marshaler.
func (r RefreshInterval) EncodeMsgpack(enc *msgpack.Encoder) error {
	return enc.EncodeInt(int64(r))
}

// DecodeMsgpack implements msgpack.Unmarshaler.
func (r *RefreshInterval) DecodeMsgpack(dec *msgpack.Decoder) error {
	n, err := dec.DecodeInt64()
	if err != nil {
		return err
	}
	*r = RefreshInterval(n)
	return nil
}

package memo

import (
	"errors"
	"fmt"
)

var errMissingFailure = errors.New("failure without error")

// envelope is the stored outcome of one call: either a result or an error.
type envelope struct {
	Failed bool         `json:"failed" msgpack:"failed"`
	Value  []byte       `json:"value,omitempty" msgpack:"value,omitempty"`
	Error  *StoredError `json:"error,omitempty" msgpack:"error,omitempty"`
}

func encodeOutcome[R any](codec Codec, result R, err error) ([]byte, error) {
	env := envelope{Failed: err != nil}
	if err != nil {
		env.Error = storedFrom(err)
	} else {
		if rules, ok := rulesFor(codec); ok {
			if lerr := rules.checkValue(result); lerr != nil {
				return nil, fmt.Errorf("memo: encode result: %w", lerr)
			}
		}
		value, merr := codec.Marshal(result)
		if merr != nil {
			return nil, fmt.Errorf("memo: encode result: %w", merr)
		}
		env.Value = value
	}
	return codec.Marshal(env)
}

func decodeEnvelope(codec Codec, data []byte) (envelope, error) {
	var env envelope
	if err := codec.Unmarshal(data, &env); err != nil {
		return envelope{}, fmt.Errorf("memo: decode entry: %w", err)
	}
	if env.Failed && env.Error == nil {
		return envelope{}, fmt.Errorf("memo: decode entry: %w", errMissingFailure)
	}
	return env, nil
}

func decodeResult[R any](codec Codec, env envelope) (R, error) {
	var r R
	if err := codec.Unmarshal(env.Value, &r); err != nil {
		return r, fmt.Errorf("memo: decode result: %w", err)
	}
	return r, nil
}

//go:build !midi_native

package midi

import "errors"

var errNoNative = errors.New("native MIDI driver is not included in this build (build with -tags midi_native)")

// OpenInput は指定デバイスを rtmidi で開く。
// デフォルトビルド（midi_nativeタグなし）では未対応。
func OpenInput(deviceName string, opts ...Option) (*Input, error) {
    return nil, errNoNative
}

// ListInputs はデフォルトビルドでは未対応。
func ListInputs() ([]string, error) {
    return nil, errNoNative
}

//go:build !midi_ble

package midi

import (
    "errors"
    "time"
)

// OpenBLEInput は BLE-MIDI デバイスをスキャンして開く。
// デフォルトビルド（midi_bleタグなし）では未対応。
func OpenBLEInput(name string, scanTimeout time.Duration, opts ...Option) (*Input, error) {
    return nil, errors.New("BLE-MIDI driver is not included in this build (build with -tags midi_ble)")
}

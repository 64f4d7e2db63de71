package midi

import "fmt"

// BLE-MIDI サービス/キャラクタリスティック UUID
const (
    BLEMIDIServiceUUID        = "03B80E5A-EDE8-4B33-A751-6CE34EC4C700"
    BLEMIDICharacteristicUUID = "7772E5DB-3868-4112-A1A9-F2669D106BF3"
)

// BLEFramer は BLE-MIDI のパケットを MIDI メッセージ単位に分解する。
// ランニングステータスとパケットをまたぐ SysEx の状態を保持する。
type BLEFramer struct {
    running byte
    sysex   []byte
    inSysex bool
    lastTS  int // 直前メッセージの 13bit ms タイムスタンプ
    started bool
}

// BLEMessage は分解済みメッセージと直前メッセージからの経過時間。
type BLEMessage struct {
    Data              []byte
    DeltaMicroseconds int64
}

// Feed は1パケットを処理する。途中で不正なバイトを見つけた場合、
// それまでに取り出せたメッセージと ErrMalformedPacket を返す。
func (f *BLEFramer) Feed(pkt []byte) ([]BLEMessage, error) {
    if len(pkt) < 2 || pkt[0]&0xC0 != 0x80 {
        return nil, fmt.Errorf("%w: bad header", ErrMalformedPacket)
    }
    high := int(pkt[0] & 0x3F)
    var out []BLEMessage
    ts := -1

    emit := func(data []byte) {
        delta := int64(0)
        if f.started && ts >= 0 {
            d := ts - f.lastTS
            if d < 0 {
                d += 1 << 13 // 13bit で一周
            }
            delta = int64(d) * 1000
        }
        if ts >= 0 {
            f.lastTS = ts
            f.started = true
        }
        out = append(out, BLEMessage{Data: data, DeltaMicroseconds: delta})
    }

    i := 1
    for i < len(pkt) {
        b := pkt[i]
        if b&0x80 != 0 {
            // タイムスタンプ下位バイト
            ts = high<<7 | int(b&0x7F)
            i++
            if i >= len(pkt) {
                return out, fmt.Errorf("%w: timestamp without status", ErrMalformedPacket)
            }
            b = pkt[i]
            if b&0x80 != 0 {
                i++
                switch {
                case b == 0xF7:
                    if !f.inSysex {
                        return out, fmt.Errorf("%w: sysex end without start", ErrMalformedPacket)
                    }
                    msg := append(f.sysex, 0xF7)
                    f.sysex, f.inSysex = nil, false
                    emit(msg)
                case b >= 0xF8:
                    // リアルタイムは SysEx 中でも割り込める
                    emit([]byte{b})
                case b == 0xF0:
                    f.inSysex = true
                    f.sysex = []byte{0xF0}
                    f.running = 0
                    for i < len(pkt) && pkt[i]&0x80 == 0 {
                        f.sysex = append(f.sysex, pkt[i])
                        i++
                    }
                default:
                    if b < 0xF0 {
                        f.running = b
                    } else {
                        f.running = 0
                    }
                    n := MessageLength(b)
                    if i+n > len(pkt) {
                        return out, fmt.Errorf("%w: truncated message 0x%02X", ErrMalformedPacket, b)
                    }
                    msg := append([]byte{b}, pkt[i:i+n]...)
                    i += n
                    emit(msg)
                }
                continue
            }
        }

        // データバイト: SysEx の続きかランニングステータス
        if f.inSysex {
            for i < len(pkt) && pkt[i]&0x80 == 0 {
                f.sysex = append(f.sysex, pkt[i])
                i++
            }
            continue
        }
        if f.running == 0 {
            return out, fmt.Errorf("%w: data byte without status", ErrMalformedPacket)
        }
        n := MessageLength(f.running)
        if i+n > len(pkt) {
            return out, fmt.Errorf("%w: truncated running status", ErrMalformedPacket)
        }
        msg := append([]byte{f.running}, pkt[i:i+n]...)
        i += n
        emit(msg)
    }
    return out, nil
}

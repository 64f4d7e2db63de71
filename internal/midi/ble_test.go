package midi

import (
    "bytes"
    "errors"
    "testing"
)

func TestBLEFramerSingleAndRunningStatus(t *testing.T) {
    var f BLEFramer
    msgs, err := f.Feed([]byte{0x80, 0x80, 0x90, 60, 100, 62, 90, 0x82, 64, 80})
    if err != nil {
        t.Fatalf("Feed: %v", err)
    }
    want := [][]byte{{0x90, 60, 100}, {0x90, 62, 90}, {0x90, 64, 80}}
    if len(msgs) != len(want) {
        t.Fatalf("got %d messages, want %d", len(msgs), len(want))
    }
    for i := range want {
        if !bytes.Equal(msgs[i].Data, want[i]) {
            t.Fatalf("msg[%d]=% X; want % X", i, msgs[i].Data, want[i])
        }
    }
    if msgs[2].DeltaMicroseconds != 2000 {
        t.Fatalf("delta=%d; want 2000", msgs[2].DeltaMicroseconds)
    }
}

func TestBLEFramerSysExAcrossPackets(t *testing.T) {
    var f BLEFramer
    msgs, err := f.Feed([]byte{0x80, 0x80, 0xF0, 0x01, 0x02})
    if err != nil || len(msgs) != 0 {
        t.Fatalf("first packet: %v %+v", err, msgs)
    }
    msgs, err = f.Feed([]byte{0x80, 0x03, 0x81, 0xF8, 0x04, 0x82, 0xF7})
    if err != nil {
        t.Fatalf("second packet: %v", err)
    }
    if len(msgs) != 2 {
        t.Fatalf("got %d messages", len(msgs))
    }
    if !bytes.Equal(msgs[0].Data, []byte{0xF8}) {
        t.Fatalf("realtime=% X", msgs[0].Data)
    }
    if !bytes.Equal(msgs[1].Data, []byte{0xF0, 1, 2, 3, 4, 0xF7}) {
        t.Fatalf("sysex=% X", msgs[1].Data)
    }
}

func TestBLEFramerTimestampWrap(t *testing.T) {
    var f BLEFramer
    if _, err := f.Feed([]byte{0xBF, 0xFF, 0xF8}); err != nil {
        t.Fatal(err)
    }
    msgs, err := f.Feed([]byte{0x80, 0x80, 0xF8})
    if err != nil {
        t.Fatal(err)
    }
    if len(msgs) != 1 || msgs[0].DeltaMicroseconds != 1000 {
        t.Fatalf("wrapped delta: %+v", msgs)
    }
}

func TestBLEFramerMalformed(t *testing.T) {
    cases := [][]byte{
        {0x00, 0x80, 0xF8},    // header bit7 なし
        {0x80},                // 短すぎる
        {0x80, 0x80},          // timestamp のみ
        {0x80, 0x80, 0x90, 60}, // データ不足
        {0x80, 0x3C, 0x40},    // ステータス無しのデータ
        {0x80, 0x80, 0xF7},    // 開始していない SysEx の終端
    }
    for _, c := range cases {
        var f BLEFramer
        if _, err := f.Feed(c); !errors.Is(err, ErrMalformedPacket) {
            t.Fatalf("Feed(% X) err=%v; want ErrMalformedPacket", c, err)
        }
    }
}

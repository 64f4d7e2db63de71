//go:build midi_native

package midi

import (
    "context"
    "fmt"
    "strings"
    "sync"

    v1 "gitlab.com/gomidi/midi"
    "gitlab.com/gomidi/rtmididrv"
)

var _ Port = v1.In(nil)

// rtPort は rtmididrv のポートとドライバをまとめ、Destroy でドライバごと閉じる。
type rtPort struct {
    v1.In
    drv    *rtmididrv.Driver
    cancel context.CancelFunc
    once   sync.Once
}

func (p *rtPort) Release() error {
    var err error
    p.once.Do(func() {
        p.cancel()
        err = p.drv.Close()
    })
    return err
}

// OpenInput は指定名の入力ポートを rtmidi で開く。
// 優先: 完全一致 → 部分一致。見つからない場合は ErrPortNotFound。
func OpenInput(deviceName string, opts ...Option) (*Input, error) {
    o := buildOptions(opts)
    drv, err := rtmididrv.New()
    if err != nil {
        return nil, fmt.Errorf("rtmididrv.New: %w", err)
    }
    ins, err := drv.Ins()
    if err != nil {
        _ = drv.Close()
        return nil, fmt.Errorf("MIDI入力列挙に失敗: %w", err)
    }
    in := findPort(ins, deviceName)
    if in == nil {
        _ = drv.Close()
        return nil, fmt.Errorf("%w: %s", ErrPortNotFound, deviceName)
    }

    ctx, cancel := context.WithCancel(context.Background())
    port := &rtPort{In: in, drv: drv, cancel: cancel}
    input := NewInput(port, opts...)
    if _, err := input.Open(); err != nil {
        _ = port.Release()
        return nil, err
    }
    go watchPort(ctx, func() ([]string, error) { return portNames(drv) }, in.String(), o.watchInterval, input, o.logger)
    return input, nil
}

// ListInputs は rtmidi から見える入力ポート名の一覧。
func ListInputs() ([]string, error) {
    drv, err := rtmididrv.New()
    if err != nil {
        return nil, fmt.Errorf("rtmididrv.New: %w", err)
    }
    defer drv.Close()
    return portNames(drv)
}

func portNames(drv *rtmididrv.Driver) ([]string, error) {
    ins, err := drv.Ins()
    if err != nil {
        return nil, fmt.Errorf("MIDI入力列挙に失敗: %w", err)
    }
    names := make([]string, 0, len(ins))
    for _, in := range ins {
        names = append(names, in.String())
    }
    return names, nil
}

func findPort(ins []v1.In, name string) v1.In {
    for _, p := range ins {
        if p.String() == name {
            return p
        }
    }
    for _, p := range ins {
        if strings.Contains(p.String(), name) {
            return p
        }
    }
    return nil
}

//go:build midi_ble

package midi

import (
    "fmt"
    "strings"
    "sync"
    "time"

    "github.com/sirupsen/logrus"
    "tinygo.org/x/bluetooth"
)

// blePort は BLE-MIDI 周辺機器を Port として扱う。
// 相手側からの切断はアダプタの接続ハンドラから StateNotifier として通知する。
type blePort struct {
    adapter *bluetooth.Adapter
    addr    bluetooth.Address
    name    string
    log     *logrus.Logger

    mu       sync.Mutex
    device   bluetooth.Device
    char     bluetooth.DeviceCharacteristic
    open     bool
    listener func([]byte, int64)
    stateFn  func(StateChange)
    framer   BLEFramer
}

func (p *blePort) String() string       { return p.name }
func (p *blePort) Number() int          { return 0 }
func (p *blePort) ID() string           { return p.addr.String() }
func (p *blePort) Manufacturer() string { return "" }

func (p *blePort) SetStateListener(fn func(StateChange)) {
    p.mu.Lock()
    p.stateFn = fn
    p.mu.Unlock()
}

func (p *blePort) notify(sc StateChange) {
    p.mu.Lock()
    fn := p.stateFn
    p.mu.Unlock()
    if fn != nil {
        fn(sc)
    }
}

func (p *blePort) Open() error {
    svcUUID, err := bluetooth.ParseUUID(BLEMIDIServiceUUID)
    if err != nil {
        return err
    }
    chrUUID, err := bluetooth.ParseUUID(BLEMIDICharacteristicUUID)
    if err != nil {
        return err
    }

    dev, err := p.adapter.Connect(p.addr, bluetooth.ConnectionParams{})
    if err != nil {
        return fmt.Errorf("BLE接続失敗: %w", err)
    }
    svcs, err := dev.DiscoverServices([]bluetooth.UUID{svcUUID})
    if err != nil || len(svcs) == 0 {
        _ = dev.Disconnect()
        return fmt.Errorf("MIDIサービスが見つかりません: %v", err)
    }
    chars, err := svcs[0].DiscoverCharacteristics([]bluetooth.UUID{chrUUID})
    if err != nil || len(chars) == 0 {
        _ = dev.Disconnect()
        return fmt.Errorf("MIDIキャラクタリスティックが見つかりません: %v", err)
    }

    p.mu.Lock()
    p.device = dev
    p.char = chars[0]
    p.framer = BLEFramer{}
    p.open = true
    p.mu.Unlock()

    if err := p.char.EnableNotifications(p.onNotify); err != nil {
        _ = p.Close()
        return fmt.Errorf("通知の有効化に失敗: %w", err)
    }
    return nil
}

func (p *blePort) Close() error {
    p.mu.Lock()
    if !p.open {
        p.mu.Unlock()
        return nil
    }
    p.open = false
    dev := p.device
    p.mu.Unlock()

    return dev.Disconnect()
}

func (p *blePort) SetListener(fn func(data []byte, deltaMicroseconds int64)) error {
    p.mu.Lock()
    p.listener = fn
    p.mu.Unlock()
    return nil
}

func (p *blePort) StopListening() error {
    p.mu.Lock()
    p.listener = nil
    p.mu.Unlock()
    return nil
}

func (p *blePort) onNotify(buf []byte) {
    p.mu.Lock()
    msgs, err := p.framer.Feed(buf)
    fn := p.listener
    p.mu.Unlock()
    if err != nil {
        p.log.WithError(err).Warn("BLE-MIDIパケットの解析に失敗")
    }
    if fn == nil {
        return
    }
    for _, m := range msgs {
        fn(m.Data, m.DeltaMicroseconds)
    }
}

// onConnect はアダプタの接続ハンドラ。こちらから閉じた場合は無視する。
func (p *blePort) onConnect(device bluetooth.Device, connected bool) {
    if connected || device.Address.String() != p.addr.String() {
        return
    }
    p.mu.Lock()
    wasOpen := p.open
    p.open = false
    p.mu.Unlock()
    if wasOpen {
        p.log.WithField("port", p.name).Warn("BLE-MIDIデバイスが切断されました")
        p.notify(StateChange{Connection: ConnectionClosed, State: StateDisconnected})
    }
}

// OpenBLEInput は BLE-MIDI デバイスをスキャンして開く。
// name が空なら MIDI サービスを広告している最初のデバイスを使う。
func OpenBLEInput(name string, scanTimeout time.Duration, opts ...Option) (*Input, error) {
    o := buildOptions(opts)
    adapter := bluetooth.DefaultAdapter
    if err := adapter.Enable(); err != nil {
        return nil, fmt.Errorf("BLEアダプタの有効化に失敗: %w", err)
    }
    svcUUID, err := bluetooth.ParseUUID(BLEMIDIServiceUUID)
    if err != nil {
        return nil, err
    }

    var (
        found    bool
        result   bluetooth.ScanResult
        stopOnce sync.Once
    )
    stop := func() { stopOnce.Do(func() { _ = adapter.StopScan() }) }
    timer := time.AfterFunc(scanTimeout, stop)
    defer timer.Stop()

    err = adapter.Scan(func(a *bluetooth.Adapter, r bluetooth.ScanResult) {
        var match bool
        if name != "" {
            match = strings.Contains(r.LocalName(), name)
        } else {
            match = r.HasServiceUUID(svcUUID)
        }
        if match && !found {
            found = true
            result = r
            stop()
        }
    })
    if err != nil {
        return nil, fmt.Errorf("BLEスキャン失敗: %w", err)
    }
    if !found {
        return nil, fmt.Errorf("%w: %s", ErrPortNotFound, name)
    }

    portName := result.LocalName()
    if portName == "" {
        portName = result.Address.String()
    }
    port := &blePort{adapter: adapter, addr: result.Address, name: portName, log: o.logger}
    adapter.SetConnectHandler(port.onConnect)

    input := NewInput(port, opts...)
    if _, err := input.Open(); err != nil {
        return nil, err
    }
    return input, nil
}

package midi

import (
    "fmt"
    "strconv"
    "sync"

    "github.com/sirupsen/logrus"
)

// Port はホスト側ドライバが提供する入力ポート。
// gitlab.com/gomidi/midi の midi.In はこれを満たす。
type Port interface {
    Open() error
    Close() error
    SetListener(func(data []byte, deltaMicroseconds int64)) error
    StopListening() error
    String() string
    Number() int
}

// StateNotifier はホスト起点の (connection, state) の変化（切断など）を通知できるポート。
// Open/Close の結果は Input 側で通知するので、ポートからは送らない。
type StateNotifier interface {
    SetStateListener(func(StateChange))
}

// Identity は ID/メーカー名を持つポート。
type Identity interface {
    ID() string
    Manufacturer() string
}

// Releaser は Destroy 時にドライバ資源を解放するポート。
type Releaser interface {
    Release() error
}

// Input はホストの入力ポートをイベント駆動のオブジェクトとして包む。
type Input struct {
    mu         sync.Mutex
    port       Port
    destroyed  bool
    connection Connection
    state      State
    info       PortInfo // 識別情報（生成時に確定）

    deliverMu sync.Mutex // メッセージ配信を1件ずつに直列化
    elapsedUS int64

    decoder   *Decoder
    listeners listeners
    log       *logrus.Logger
}

// NewInput は port を包む Input を作る。ポートはまだ開かない。
func NewInput(port Port, opts ...Option) *Input {
    o := buildOptions(opts)
    in := &Input{
        port:       port,
        connection: ConnectionClosed,
        state:      StateConnected,
        decoder:    NewDecoder(opts...),
        log:        o.logger,
    }
    in.info = PortInfo{
        ID:   strconv.Itoa(port.Number()),
        Name: port.String(),
        Type: PortTypeInput,
    }
    if id, ok := port.(Identity); ok {
        in.info.ID = id.ID()
        in.info.Manufacturer = id.Manufacturer()
    }
    if sn, ok := port.(StateNotifier); ok {
        sn.SetStateListener(in.HandleStateChange)
    }
    return in
}

// Open はポートを開いてメッセージの受信を始め、自身を返す。
// ホストのエラーはラップして返す（errors.Is で元のエラーを判定できる）。
func (in *Input) Open() (*Input, error) {
    in.mu.Lock()
    port, destroyed := in.port, in.destroyed
    in.mu.Unlock()
    if destroyed || port == nil {
        return nil, ErrDestroyed
    }

    if err := port.Open(); err != nil {
        return nil, fmt.Errorf("入力オープン失敗 (%s): %w", port.String(), err)
    }
    in.deliverMu.Lock()
    in.elapsedUS = 0
    in.deliverMu.Unlock()
    if err := port.SetListener(in.onMessage); err != nil {
        _ = port.Close()
        return nil, fmt.Errorf("リスナ設定失敗 (%s): %w", port.String(), err)
    }
    in.applyStateChange(StateChange{Connection: ConnectionOpen, State: StateConnected})
    return in, nil
}

// Close はポートを閉じる。ポート参照が既に無い場合は何もしない。
// closed は開いていて接続中だった場合だけ通知する。切断後や未オープンでは状態を変えない。
func (in *Input) Close() error {
    in.mu.Lock()
    port := in.port
    wasOpen := in.connection == ConnectionOpen && in.state == StateConnected
    in.mu.Unlock()
    if port == nil {
        return nil
    }
    if err := port.Close(); err != nil {
        return fmt.Errorf("入力クローズ失敗 (%s): %w", port.String(), err)
    }
    if wasOpen {
        in.applyStateChange(StateChange{Connection: ConnectionClosed, State: StateConnected})
    }
    return nil
}

// Destroy はポートを閉じ、ホストのコールバックと全リスナを外して
// ポート参照を手放す。以降この Input は何もしない。
func (in *Input) Destroy() error {
    in.mu.Lock()
    port := in.port
    in.mu.Unlock()
    if port == nil {
        return nil
    }

    err := in.Close()
    if e := port.StopListening(); e != nil {
        in.log.WithError(e).Debug("StopListening 失敗（無視）")
    }
    if sn, ok := port.(StateNotifier); ok {
        sn.SetStateListener(nil)
    }
    if r, ok := port.(Releaser); ok {
        if e := r.Release(); e != nil && err == nil {
            err = fmt.Errorf("ドライバ解放失敗: %w", e)
        }
    }
    in.listeners.removeKind("")

    in.mu.Lock()
    in.port = nil
    in.destroyed = true
    in.mu.Unlock()
    return err
}

// HandleStateChange はホストの状態変化通知を opened/closed/disconnected に変換する。
// ホストのゴルーチンから呼ばれてもメッセージ配信とは重ならない。
// リスナの中から呼ぶとデッドロックする。
func (in *Input) HandleStateChange(sc StateChange) {
    in.deliverMu.Lock()
    defer in.deliverMu.Unlock()
    in.applyStateChange(sc)
}

// applyStateChange は Open/Close を呼んだゴルーチン上でそのまま配信する。
func (in *Input) applyStateChange(sc StateChange) {
    in.mu.Lock()
    if in.destroyed {
        in.mu.Unlock()
        return
    }
    in.connection = sc.Connection
    in.state = sc.State
    in.mu.Unlock()

    switch {
    case sc.Connection == ConnectionOpen:
        in.listeners.dispatch(Event{Kind: Opened, Target: in})
    case sc.Connection == ConnectionClosed && sc.State == StateConnected:
        in.listeners.dispatch(Event{Kind: Closed, Target: in})
    case sc.Connection == ConnectionClosed && sc.State == StateDisconnected:
        // デバイスは既に無いので生きたオブジェクトではなくスナップショットを渡す
        snap := in.Info()
        in.listeners.dispatch(Event{Kind: Disconnected, Snapshot: &snap})
    case sc.Connection == ConnectionPending && sc.State == StateDisconnected:
        // 抑制
    default:
        in.log.WithFields(logrus.Fields{
            "port":       in.info.Name,
            "connection": sc.Connection,
            "state":      sc.State,
        }).Warn("不明な状態変化の組み合わせ")
    }
}

// onMessage はホストからのメッセージ受信コールバック。
func (in *Input) onMessage(data []byte, deltaMicroseconds int64) {
    in.deliverMu.Lock()
    defer in.deliverMu.Unlock()

    in.elapsedUS += deltaMicroseconds
    ts := float64(in.elapsedUS) / 1000
    for _, ev := range in.decoder.Decode(data, ts) {
        ev.Target = in
        in.listeners.dispatch(ev)
    }
}

// AddListener は kind のイベントを受け取るハンドラを登録する。
// channels が空なら全チャネル。チャネルを持たない種別では channels は無視される。
func (in *Input) AddListener(kind EventKind, channels []int, h Handler) (ListenerID, error) {
    return in.listeners.add(kind, channels, h)
}

// RemoveListener は登録を外す。見つからなければ false。
func (in *Input) RemoveListener(id ListenerID) bool {
    return in.listeners.remove(id)
}

// RemoveListeners は kind の登録を全て外す。kind が空なら全種別。
func (in *Input) RemoveListeners(kind EventKind) {
    in.listeners.removeKind(kind)
}

// HasListener は id が登録済みかどうか。
func (in *Input) HasListener(id ListenerID) bool {
    return in.listeners.has(id)
}

// NRPNEventsEnabled は NRPN イベントの組み立てが有効かどうか。
func (in *Input) NRPNEventsEnabled() bool { return in.decoder.NRPNEnabled() }

// SetNRPNEventsEnabled は NRPN イベントの組み立てを切り替える。
// 無効化すると組み立て途中のシーケンスは破棄される。
func (in *Input) SetNRPNEventsEnabled(enabled bool) { in.decoder.SetNRPNEnabled(enabled) }

func (in *Input) ID() string           { return in.info.ID }
func (in *Input) Name() string         { return in.info.Name }
func (in *Input) Manufacturer() string { return in.info.Manufacturer }
func (in *Input) Type() string         { return PortTypeInput }

func (in *Input) State() State {
    in.mu.Lock()
    defer in.mu.Unlock()
    return in.state
}

func (in *Input) Connection() Connection {
    in.mu.Lock()
    defer in.mu.Unlock()
    return in.connection
}

// Info は現在の識別情報と状態のスナップショット。
func (in *Input) Info() PortInfo {
    in.mu.Lock()
    defer in.mu.Unlock()
    p := in.info
    p.State = in.state
    p.Connection = in.connection
    return p
}

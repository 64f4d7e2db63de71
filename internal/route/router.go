package route

import (
    "context"
    "fmt"
    "strconv"
    "strings"
    "sync"
    "time"

    "github.com/bep/debounce"
    "github.com/samber/lo"
    "github.com/sirupsen/logrus"

    "midiinput/internal/config"
    "midiinput/internal/midi"
)

// SceneSwitcher はシーン切替の実行先。obsws.Switcher が満たす。
// at がゼロ値なら即時。
type SceneSwitcher interface {
    SwitchSceneAt(ctx context.Context, scene string, at time.Time) error
}

// Rule は1つのイベント → シーンの対応。
type Rule struct {
    Kind    midi.EventKind
    Channel int // 1-16
    Number  int // ノート/プログラム/CC/NRPNパラメータ番号
    Scene   string
}

func (r Rule) key() string { return ruleKey(r.Kind, r.Channel, r.Number) }

func ruleKey(kind midi.EventKind, ch, num int) string {
    return fmt.Sprintf("%s/%d:%d", kind, ch, num)
}

var kindByName = map[string]midi.EventKind{
    "note_on":        midi.NoteOn,
    "program_change": midi.ProgramChange,
    "control_change": midi.ControlChange,
    "nrpn":           midi.NRPN,
}

// maxNumber は種別ごとの Number の上限。NRPN は 14bit。
func maxNumber(kind midi.EventKind) int {
    if kind == midi.NRPN {
        return 1<<14 - 1
    }
    return 127
}

func newRule(typ string, ch, num int, scene string) (Rule, error) {
    kind, ok := kindByName[strings.ToLower(strings.TrimSpace(typ))]
    if !ok {
        return Rule{}, fmt.Errorf("不明な種別: %q", typ)
    }
    if ch < 1 || ch > 16 {
        return Rule{}, fmt.Errorf("チャネルは 1..16 を指定してください: %d", ch)
    }
    if num < 0 || num > maxNumber(kind) {
        return Rule{}, fmt.Errorf("番号が範囲外です: %d", num)
    }
    scene = strings.TrimSpace(scene)
    if scene == "" {
        return Rule{}, fmt.Errorf("シーン名が空です")
    }
    return Rule{Kind: kind, Channel: ch, Number: num, Scene: scene}, nil
}

// ParseRule は "type:ch:num=Scene Name" 形式を解析する。
// 例: note_on:1:36=SceneA, nrpn:2:130=SceneB
func ParseRule(s string) (Rule, error) {
    parts := strings.SplitN(strings.TrimSpace(s), "=", 2)
    if len(parts) != 2 {
        return Rule{}, fmt.Errorf("形式が不正です（type:ch:num=scene）: %q", s)
    }
    left := strings.Split(strings.TrimSpace(parts[0]), ":")
    if len(left) != 3 {
        return Rule{}, fmt.Errorf("形式が不正です（type:ch:num=scene）: %q", s)
    }
    ch, err := strconv.Atoi(strings.TrimSpace(left[1]))
    if err != nil {
        return Rule{}, fmt.Errorf("チャネルが数値ではありません: %q", left[1])
    }
    num, err := strconv.Atoi(strings.TrimSpace(left[2]))
    if err != nil {
        return Rule{}, fmt.Errorf("番号が数値ではありません: %q", left[2])
    }
    return newRule(left[0], ch, num, parts[1])
}

// FromConfig は設定ファイルのルートを Rule に変換する。
func FromConfig(r config.Route) (Rule, error) {
    return newRule(r.Type, r.Channel, r.Number, r.Scene)
}

type Options struct {
    Debounce  time.Duration // 同じキーの連打をまとめる
    RateLimit time.Duration // 同じキーの最短発火間隔
    Delay     time.Duration // 発火から実際に切り替えるまでの遅延（複数OBSで同時刻に揃える）
    Log       *logrus.Logger
}

// Router は Input のイベントをルールに従ってシーン切替に変換する。
type Router struct {
    ctx   context.Context
    sw    SceneSwitcher
    rules map[string]Rule
    opts  Options
    log   *logrus.Logger
    now   func() time.Time

    mu         sync.Mutex
    lastAt     map[string]time.Time
    debouncers map[string]func(func())

    attached map[*midi.Input][]midi.ListenerID
}

// New は Router を作る。同じキーのルールは後勝ち。
func New(ctx context.Context, sw SceneSwitcher, rules []Rule, opts Options) *Router {
    log := opts.Log
    if log == nil {
        log = logrus.StandardLogger()
    }
    r := &Router{
        ctx:        ctx,
        sw:         sw,
        rules:      map[string]Rule{},
        opts:       opts,
        log:        log,
        now:        time.Now,
        lastAt:     map[string]time.Time{},
        debouncers: map[string]func(func()){},
        attached:   map[*midi.Input][]midi.ListenerID{},
    }
    for _, rule := range rules {
        r.rules[rule.key()] = rule
    }
    return r
}

// Kinds はルールが使うイベント種別。
func (r *Router) Kinds() []midi.EventKind {
    kinds := lo.Uniq(lo.MapToSlice(r.rules, func(_ string, rule Rule) midi.EventKind { return rule.Kind }))
    return kinds
}

// Attach は in のイベント購読を始める。
func (r *Router) Attach(in *midi.Input) error {
    var ids []midi.ListenerID
    for _, kind := range r.Kinds() {
        id, err := in.AddListener(kind, nil, r.Handle)
        if err != nil {
            for _, x := range ids {
                in.RemoveListener(x)
            }
            return err
        }
        ids = append(ids, id)
    }
    r.mu.Lock()
    r.attached[in] = append(r.attached[in], ids...)
    r.mu.Unlock()
    return nil
}

// Detach は Attach した購読を外す。
func (r *Router) Detach(in *midi.Input) {
    r.mu.Lock()
    ids := r.attached[in]
    delete(r.attached, in)
    r.mu.Unlock()
    for _, id := range ids {
        in.RemoveListener(id)
    }
}

func eventNumber(ev midi.Event) (int, bool) {
    switch ev.Kind {
    case midi.NoteOn:
        if ev.Note != nil {
            return int(ev.Note.Number), true
        }
    case midi.ProgramChange:
        return int(ev.Value), true
    case midi.ControlChange:
        if ev.Controller != nil {
            return int(ev.Controller.Number), true
        }
    case midi.NRPN:
        if ev.NRPN != nil {
            return int(ev.NRPN.Parameter), true
        }
    }
    return 0, false
}

// Handle は1イベントを処理する。Debounce が 0 なら配信中に同期でシーンを切り替える。
func (r *Router) Handle(ev midi.Event) {
    num, ok := eventNumber(ev)
    if !ok {
        return
    }
    key := ruleKey(ev.Kind, ev.Channel, num)
    rule, ok := r.rules[key]
    if !ok {
        return
    }

    r.mu.Lock()
    now := r.now()
    if last, ok := r.lastAt[key]; ok && r.opts.RateLimit > 0 {
        if since := now.Sub(last); since < r.opts.RateLimit {
            r.mu.Unlock()
            r.log.Debugf("skip by ratelimit %s for %s (remain %s)", r.opts.RateLimit, key, r.opts.RateLimit-since)
            return
        }
    }
    r.lastAt[key] = now
    var deb func(func())
    if r.opts.Debounce > 0 {
        deb, ok = r.debouncers[key]
        if !ok {
            deb = debounce.New(r.opts.Debounce)
            r.debouncers[key] = deb
        }
    }
    r.mu.Unlock()

    fire := func() {
        var at time.Time
        if r.opts.Delay > 0 {
            at = r.now().Add(r.opts.Delay)
        }
        if err := r.sw.SwitchSceneAt(r.ctx, rule.Scene, at); err != nil {
            r.log.WithError(err).Errorf("シーン切替失敗: %s", rule.Scene)
            return
        }
        r.log.Infof("シーン切替: %s (from %s CH%d #%d)", rule.Scene, ev.Kind, ev.Channel, num)
    }
    if deb != nil {
        deb(fire)
        return
    }
    fire()
}

// Sequential は scenes に start から連番の番号を割り当てたルートを作る。
// 上限を超えた分は捨てる。
func Sequential(scenes []string, typ string, channel, start int) ([]config.Route, error) {
    // 先頭を検証に使う
    first, err := newRule(typ, channel, start, "_")
    if err != nil {
        return nil, err
    }
    limit := maxNumber(first.Kind)
    out := make([]config.Route, 0, len(scenes))
    n := start
    for _, s := range scenes {
        if n > limit {
            break
        }
        out = append(out, config.Route{Type: strings.ToLower(strings.TrimSpace(typ)), Channel: channel, Number: n, Scene: s})
        n++
    }
    return out, nil
}

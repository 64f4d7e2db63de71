package config

import (
    "errors"
    "os"
    "path/filepath"
    "testing"
    "time"
)

func TestLoadMissing(t *testing.T) {
    _, err := Load(filepath.Join(t.TempDir(), "nope.json"))
    if !errors.Is(err, os.ErrNotExist) {
        t.Fatalf("err=%v; want os.ErrNotExist", err)
    }
}

func TestLoadAppliesDefaults(t *testing.T) {
    path := filepath.Join(t.TempDir(), "config.json")
    data := []byte(`{
        "device": "DevA",
        "rate_limit": "80ms",
        "routes": [
          {"type":"nrpn","channel":1,"number":130,"scene":"SceneA"}
        ]
    }`)
    if err := os.WriteFile(path, data, 0o644); err != nil {
        t.Fatal(err)
    }
    c, err := Load(path)
    if err != nil {
        t.Fatalf("Load: %v", err)
    }
    if c.Device != "DevA" || c.Transport != "rtmidi" {
        t.Fatalf("device=%q transport=%q", c.Device, c.Transport)
    }
    if !c.NRPNEnabled() {
        t.Fatalf("nrpn_events should default to true")
    }
    if len(c.Routes) != 1 || c.Routes[0].Number != 130 {
        t.Fatalf("routes=%+v", c.Routes)
    }
    deb, rl, to, err := c.Durations()
    if err != nil {
        t.Fatal(err)
    }
    if deb != 30*time.Millisecond || rl != 80*time.Millisecond || to != 5*time.Second {
        t.Fatalf("durations=%v %v %v", deb, rl, to)
    }
}

func TestNRPNEventsFalse(t *testing.T) {
    path := filepath.Join(t.TempDir(), "config.json")
    if err := os.WriteFile(path, []byte(`{"nrpn_events": false}`), 0o644); err != nil {
        t.Fatal(err)
    }
    c, err := Load(path)
    if err != nil {
        t.Fatal(err)
    }
    if c.NRPNEnabled() {
        t.Fatalf("nrpn_events=false was ignored")
    }
}

func TestDurationsBadValue(t *testing.T) {
    c := Default()
    c.Debounce = "soon"
    if _, _, _, err := c.Durations(); err == nil {
        t.Fatalf("expected error for bad debounce")
    }
}

func TestSaveRoundTrip(t *testing.T) {
    path := filepath.Join(t.TempDir(), "sub", "config.json")
    c := Default()
    c.Device = "IAC Driver Bus 1"
    if err := Save(path, c); err != nil {
        t.Fatalf("Save: %v", err)
    }
    got, err := Load(path)
    if err != nil {
        t.Fatalf("Load: %v", err)
    }
    if got.Device != c.Device || len(got.OBS.Addrs) != 1 {
        t.Fatalf("got %+v", got)
    }
    if err := Save(path, nil); err == nil {
        t.Fatalf("Save(nil) should fail")
    }
}

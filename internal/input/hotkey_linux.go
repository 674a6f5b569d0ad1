//go:build linux

package input

import "golang.design/x/hotkey"

// modifiers maps combination names to X11 modifiers. Alt is Mod1 and Super
// is Mod4 on common layouts.
var modifiers = map[string]hotkey.Modifier{
	"ctrl":    hotkey.ModCtrl,
	"control": hotkey.ModCtrl,
	"shift":   hotkey.ModShift,
	"alt":     hotkey.Mod1,
	"option":  hotkey.Mod1,
	"super":   hotkey.Mod4,
	"win":     hotkey.Mod4,
	"cmd":     hotkey.Mod4,
	"command": hotkey.Mod4,
}

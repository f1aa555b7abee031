package prompts

import (
	"strings"
	"testing"

	"github.com/hcx1999/AIgame/pkg/state"
)

func TestBuildNarratorPrompt_TruncatesBackground(t *testing.T) {
	long := strings.Repeat("世", BackgroundLimit+200)
	ws := state.NewWorldState()
	ws.SetBackground(long)

	prompt := BuildNarratorPrompt(ws)

	head := string([]rune(long)[:BackgroundLimit])
	if !strings.Contains(prompt, head+TruncationMarker) {
		t.Fatal("prompt does not contain the first 1000 runes followed by the truncation marker")
	}
	if strings.Contains(prompt, string([]rune(long)[:BackgroundLimit+1])) {
		t.Error("prompt contains background beyond the truncation limit")
	}
}

func TestBuildNarratorPrompt_ShortBackgroundNotTruncated(t *testing.T) {
	ws := state.NewWorldState()
	ws.SetBackground("一个小镇")
	prompt := BuildNarratorPrompt(ws)
	if !strings.Contains(prompt, "一个小镇") {
		t.Fatal("prompt missing background")
	}
	if strings.Contains(prompt, "一个小镇"+TruncationMarker) {
		t.Error("short background was truncated")
	}
}

func TestBuildNarratorPrompt_HistoryWindow(t *testing.T) {
	ws := state.NewWorldState()
	ws.AppendHistory(
		state.Event{Role: state.RoleSystem, Content: "第一幕"},
		state.Event{Role: state.RoleSystem, Content: "第二幕"},
		state.Event{Role: state.RoleSystem, Content: "第三幕"},
		state.Event{Role: state.RoleSystem, Content: "第四幕"},
	)

	prompt := BuildNarratorPrompt(ws)
	if strings.Contains(prompt, "第一幕") {
		t.Error("prompt contains an event outside the 3-event window")
	}
	for _, want := range []string{"第二幕", "第三幕", "第四幕"} {
		if !strings.Contains(prompt, "系统: "+want) {
			t.Errorf("prompt missing windowed event %q", want)
		}
	}
}

func TestBuildNarratorPrompt_TruncatesHistoryEntries(t *testing.T) {
	long := strings.Repeat("事", HistoryEntryLimit+50)
	ws := state.NewWorldState()
	ws.AppendHistory(state.Event{Role: state.RoleSystem, Content: long})

	prompt := BuildNarratorPrompt(ws)
	head := string([]rune(long)[:HistoryEntryLimit])
	if !strings.Contains(prompt, head+TruncationMarker) {
		t.Fatal("history entry not truncated to 200 runes with marker")
	}
}

func TestBuildNarratorPrompt_Deterministic(t *testing.T) {
	ws := state.NewWorldState()
	ws.SetBackground("背景")
	ws.AppendHistory(state.Event{Role: state.RolePlayer, Content: "玩家选择前进"})

	a := BuildNarratorPrompt(ws)
	b := BuildNarratorPrompt(ws)
	if a != b {
		t.Fatal("prompt formatting is not deterministic")
	}
}

func TestBuildNarratorPrompt_ContainsContract(t *testing.T) {
	prompt := BuildNarratorPrompt(state.NewWorldState())
	for _, section := range []string{"## 角色设定", "### 世界观背景", "### 最近事件", "## 输出格式要求", "## 输出格式示例"} {
		if !strings.Contains(prompt, section) {
			t.Errorf("prompt missing section %q", section)
		}
	}
}

func TestBuildNPCPrompt(t *testing.T) {
	got := BuildNPCPrompt("酒馆里人声鼎沸\n", "温迪", "爱好自由的吟游诗人")
	for _, want := range []string{"酒馆里人声鼎沸", "你是温迪", "爱好自由的吟游诗人", "请以温迪为主语", "50字以内"} {
		if !strings.Contains(got, want) {
			t.Errorf("NPC prompt missing %q", want)
		}
	}
}

func TestTruncate(t *testing.T) {
	if got := Truncate("短文本", 10); got != "短文本" {
		t.Errorf("short text modified: %q", got)
	}
	if got := Truncate("一二三四五", 3); got != "一二三"+TruncationMarker {
		t.Errorf("truncate = %q", got)
	}
}

package prompts

import (
	"fmt"
	"strings"

	"github.com/hcx1999/AIgame/pkg/state"
)

// Narrator prompt window and truncation limits. Truncation is a hard
// rune cut, not word-boundary aware.
const (
	BackgroundLimit    = 1000
	HistoryEntryLimit  = 200
	HistoryWindow      = 3
	TruncationMarker   = "..."
	FallbackUserPrompt = "生成一个简单的冒险情节"
)

// NarratorInstructions describes the narrator's role and output contract.
const NarratorInstructions = "## 角色设定\n" +
	"你是游戏世界的叙事控制者，负责推进剧情发展。根据以下要素：\n" +
	"1. 生成1段3-5句的剧情叙述（包含环境描写和角色互动，应当涉及所有已存在角色）（要求输出里所有玩家进行的操作的主语都是'玩家'）\n" +
	"2. 生成3-5个玩家选项（每个选项不超过15字）\n" +
	"3. 新增角色是非常规事件，只有当剧情出现重大转折或需要关键人物时才新增。大部分回合不需要新增角色。\n\n"

// NarratorFormatSpec restates the required output format.
const NarratorFormatSpec = "\n## 输出格式要求\n" +
	"请严格按照以下格式输出：\n" +
	"剧情: [生成的叙述文本]\n" +
	"选项:\n" +
	"1. [选项1]\n" +
	"2. [选项2]\n" +
	"3. [选项3]" +
	"若有新增角色，则添加以下内容：" +
	"\n新角色:新角色名字 新角色描述"

// NarratorFormatExample is a worked example of the output format.
const NarratorFormatExample = "\n## 输出格式示例\n" +
	"剧情: 小镇中人声鼎沸，热闹非凡\n" +
	"选项:\n" +
	"1. 向路人询问热闹的原因\n" +
	"2. 前往镇中广场\n" +
	"剧情: 你走进昏暗的酒馆，看到角落坐着一位神秘的老人...\n" +
	"选项:\n" +
	"1. 上前与老人交谈\n" +
	"2. 在吧台点一杯麦酒\n" +
	"3. 观察酒馆内的情况\n" +
	"新角色:老巫师 穿着灰色长袍，手持橡木法杖"

// AssistantSystemPrompt is the fixed system instruction for the chat
// assistant session. The 【背景总结】 contract is what the summary
// detector in the engine watches for.
const AssistantSystemPrompt = `你是一款多智能体剧情游戏的游戏助手，专门负责与玩家交流，并将玩家提供的信息和指令传递给游戏系统的控制 agent。你的任务包括：
1. 友好地与玩家进行多轮对话，理解他们的输入内容；
2. 当玩家描述游戏背景时，你需要对其进行总结，以"【背景总结】：在一个……的世界中，玩家是……。"这样的格式输出。在总结背景时不要输出与背景无关的内容，包括问候语
3. 如果玩家提出其他想法或建议，你应友好记录并提醒他们你不直接参与剧情内容的生成；
4. 你不会参与游戏中的剧情推进和角色扮演，只做信息中转与玩家沟通；
5. 所有回复尽量简洁、自然，不剧透、不主动引导剧情方向。
请始终保持语气友善、简洁、明确。`

// BuildNarratorPrompt formats a grounded narration request from a world
// snapshot: instructions, truncated background, the last few history
// events, then the output contract and a worked example. It is a pure
// function of the snapshot and the package limits.
func BuildNarratorPrompt(ws *state.WorldState) string {
	var b strings.Builder
	b.WriteString(NarratorInstructions)

	b.WriteString("### 世界观背景\n")
	b.WriteString(Truncate(ws.Background, BackgroundLimit))
	b.WriteString("\n\n")

	b.WriteString("\n### 最近事件\n")
	history := ws.History
	if len(history) > HistoryWindow {
		history = history[len(history)-HistoryWindow:]
	}
	for _, event := range history {
		role := event.Role
		if role == "" {
			role = state.RolePlayer
		}
		b.WriteString(fmt.Sprintf("%s: %s\n", role, Truncate(event.Content, HistoryEntryLimit)))
	}

	b.WriteString(NarratorFormatSpec)
	b.WriteString(NarratorFormatExample)
	return b.String()
}

// BuildNPCPrompt builds the one-shot in-character reaction request for a
// single NPC: the interaction transcript, the character's traits, and a
// length/continuation constraint.
func BuildNPCPrompt(interaction, name, traits string) string {
	return interaction + "你是" + name + "，你的性格如下：" + traits +
		"请以" + name + "为主语写一下接下来的言行，控制在50字以内。要求能够让故事能持续下去，不必完结太快。"
}

// Truncate hard-cuts text to max runes, appending the truncation marker
// when a cut happens. Cuts may fall mid-word.
func Truncate(text string, max int) string {
	runes := []rune(text)
	if len(runes) <= max {
		return text
	}
	return string(runes[:max]) + TruncationMarker
}

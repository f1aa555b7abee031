package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"

	"github.com/hcx1999/AIgame/internal/engine"
	"github.com/hcx1999/AIgame/pkg/state"
	"github.com/hcx1999/AIgame/pkg/textfilter"
	"github.com/hcx1999/AIgame/pkg/turn"
)

const placeholderText = "输入消息，或输入选项编号…"

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Bold(true)

	speakerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("212")).
			Bold(true)

	narratorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("86"))

	optionStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39"))

	userStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39"))

	assistantStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("255"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))

	hintStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))
)

// Messages delivered by the enginePresenter via program.Send.
type turnMsg struct{ result turn.TurnResult }
type npcEventsMsg struct{ events []state.Event }
type chatFragmentMsg struct{ text string }
type illustrationMsg struct{ path string }

// enginePresenter adapts the engine's Presenter boundary to bubbletea
// messages. Sends are asynchronous, so the engine never blocks on UI.
type enginePresenter struct {
	program *tea.Program
}

func (p *enginePresenter) send(msg tea.Msg) {
	if p.program != nil {
		p.program.Send(msg)
	}
}

func (p *enginePresenter) EmitTurn(result turn.TurnResult) { p.send(turnMsg{result}) }

func (p *enginePresenter) EmitNPCEvents(events []state.Event) { p.send(npcEventsMsg{events}) }

func (p *enginePresenter) EmitChatFragment(text string) { p.send(chatFragmentMsg{text}) }

func (p *enginePresenter) EmitIllustration(path string) { p.send(illustrationMsg{path}) }

// ConsoleUI is the BubbleTea model that runs the game client: story
// pane on the left, assistant chat pane on the right, one input box.
type ConsoleUI struct {
	coordinator *engine.Coordinator
	assistant   *engine.Assistant
	screener    *textfilter.Screener
	maxInput    int

	storyViewport viewport.Model
	chatViewport  viewport.Model
	textarea      textarea.Model

	storyLines []string
	chatLines  []string
	options    []string
	streaming  bool // an assistant reply is currently streaming

	ready  bool
	width  int
	height int
}

// NewConsoleUI builds the initial model.
func NewConsoleUI(coordinator *engine.Coordinator, assistant *engine.Assistant, screener *textfilter.Screener, maxInput int) ConsoleUI {
	ta := textarea.New()
	ta.Placeholder = placeholderText
	ta.Focus()
	ta.Prompt = hintStyle.Render(":: ")
	ta.CharLimit = 1000
	ta.SetWidth(50)
	ta.SetHeight(3)
	ta.ShowLineNumbers = false

	storyVp := viewport.New(50, 20)
	storyVp.MouseWheelEnabled = true
	chatVp := viewport.New(40, 20)
	chatVp.MouseWheelEnabled = true

	return ConsoleUI{
		coordinator:   coordinator,
		assistant:     assistant,
		screener:      screener,
		maxInput:      maxInput,
		textarea:      ta,
		storyViewport: storyVp,
		chatViewport:  chatVp,
		chatLines: []string{
			assistantStyle.Render("我是你的智能游戏助手，请向我发送你想要的游戏背景来开始游戏吧！或者你也可以跟我聊聊你感兴趣的其他事情"),
			"",
		},
	}
}

func (m ConsoleUI) Init() tea.Cmd {
	return textarea.Blink
}

func (m ConsoleUI) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var (
		taCmd tea.Cmd
		svCmd tea.Cmd
		cvCmd tea.Cmd
	)
	m.textarea, taCmd = m.textarea.Update(msg)
	m.storyViewport, svCmd = m.storyViewport.Update(msg)
	m.chatViewport, cvCmd = m.chatViewport.Update(msg)

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.layout()
		m.ready = true

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC:
			return m, tea.Quit
		case tea.KeyEnter:
			return m.handleSubmit()
		}

	case turnMsg:
		m.appendTurn(msg.result)
	case npcEventsMsg:
		for _, event := range msg.events {
			m.addStory(speakerStyle.Render(event.Role+": ") + narratorStyle.Render(strings.TrimSpace(event.Content)))
		}
		m.addStory("")
	case chatFragmentMsg:
		m.appendChatFragment(msg.text)
	case illustrationMsg:
		m.addStory(hintStyle.Render("[插图] " + msg.path))
	}

	return m, tea.Batch(taCmd, svCmd, cvCmd)
}

func (m ConsoleUI) View() string {
	if !m.ready {
		return "正在加载…"
	}
	left := m.storyViewport.View()
	right := m.chatViewport.View()
	panes := lipgloss.JoinHorizontal(lipgloss.Top, left, "  ", right)
	help := hintStyle.Render("Enter 发送 · 数字选择剧情选项 · /bg <背景> 直接开局 · Ctrl+C 退出")
	return panes + "\n" + m.textarea.View() + "\n" + help
}

// handleSubmit routes the input box: a bare option number becomes a
// player choice, /bg sets the background directly, anything else goes
// through screening to the chat assistant.
func (m ConsoleUI) handleSubmit() (tea.Model, tea.Cmd) {
	text := strings.TrimSpace(m.textarea.Value())
	if text == "" {
		return m, nil
	}
	m.textarea.Reset()

	if n, err := strconv.Atoi(text); err == nil && len(m.options) > 0 {
		if n >= 1 && n <= len(m.options) {
			choice := m.options[n-1]
			m.options = nil
			m.addStory(userStyle.Render("> " + choice))
			m.addStory("")
			m.coordinator.SubmitChoice(choice)
			return m, nil
		}
		m.addStory(errorStyle.Render(fmt.Sprintf("没有选项 %d", n)))
		return m, nil
	}

	if bg, ok := strings.CutPrefix(text, "/bg "); ok {
		bg = strings.TrimSpace(bg)
		if bg == "" {
			m.addStory(errorStyle.Render("背景不能为空"))
			return m, nil
		}
		if warning := m.screen(bg); warning != "" {
			m.addStory(errorStyle.Render(warning))
			return m, nil
		}
		m.coordinator.SubmitBackground(bg)
		m.addStory(hintStyle.Render("背景已设置"))
		return m, nil
	}

	if warning := m.screen(text); warning != "" {
		m.addChat(errorStyle.Render(warning))
		m.addChat("")
		return m, nil
	}

	m.addChat(userStyle.Render("你: " + text))
	m.addChat("")
	m.streaming = false

	assistant := m.assistant
	go func() {
		// errors surface through the presenter as streamed apologies
		_ = assistant.Send(context.Background(), text)
	}()
	return m, nil
}

// screen runs the pre-flight input checks in the original order:
// length, prompt injection, sensitive words. A non-empty return is the
// rejection message; the input never reaches the assistant.
func (m *ConsoleUI) screen(text string) string {
	if textfilter.EnforceLength(text, m.maxInput) == textfilter.LengthExceededMarker {
		return "输入字符过多，超出字数限制"
	}
	if found := m.screener.CheckInjection(text); len(found) > 0 {
		return "检测到潜在的提示注入关键词：" + strings.Join(found, "，")
	}
	if found := m.screener.CheckSensitive(text); len(found) > 0 {
		return "检测到敏感词：" + strings.Join(found, ", ") + "，请修改内容避免违规。"
	}
	return ""
}

func (m *ConsoleUI) appendTurn(result turn.TurnResult) {
	m.addStory(narratorStyle.Render(result.Narrative))
	if result.NewCharacter != nil {
		m.addStory(speakerStyle.Render(fmt.Sprintf("你遇到了 %s!", result.NewCharacter.Name)))
	}
	if len(result.Options) > 0 {
		m.addStory("")
		m.addStory(titleStyle.Render("玩家选择:"))
		for i, opt := range result.Options {
			m.addStory(optionStyle.Render(fmt.Sprintf("%d. %s", i+1, opt)))
		}
	}
	m.addStory("")
	m.options = result.Options
}

// appendChatFragment grows the assistant's current bubble in place.
func (m *ConsoleUI) appendChatFragment(text string) {
	if !m.streaming {
		m.streaming = true
		m.chatLines = append(m.chatLines, "")
	}
	m.chatLines[len(m.chatLines)-1] += text
	m.refreshChat()
}

func (m *ConsoleUI) addStory(line string) {
	m.storyLines = append(m.storyLines, line)
	m.refreshStory()
}

func (m *ConsoleUI) addChat(line string) {
	m.streaming = false
	m.chatLines = append(m.chatLines, line)
	m.refreshChat()
}

func (m *ConsoleUI) refreshStory() {
	width := m.storyViewport.Width
	if width <= 0 {
		width = 50
	}
	m.storyViewport.SetContent(wordwrap.String(strings.Join(m.storyLines, "\n"), width))
	m.storyViewport.GotoBottom()
}

func (m *ConsoleUI) refreshChat() {
	width := m.chatViewport.Width
	if width <= 0 {
		width = 40
	}
	m.chatViewport.SetContent(wordwrap.String(strings.Join(m.chatLines, "\n"), width))
	m.chatViewport.GotoBottom()
}

func (m *ConsoleUI) layout() {
	storyWidth := m.width * 3 / 5
	chatWidth := m.width - storyWidth - 2
	paneHeight := m.height - 6

	m.storyViewport.Width = storyWidth
	m.storyViewport.Height = paneHeight
	m.chatViewport.Width = chatWidth
	m.chatViewport.Height = paneHeight
	m.textarea.SetWidth(m.width - 4)
	m.refreshStory()
	m.refreshChat()
}

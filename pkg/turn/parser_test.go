package turn

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hcx1999/AIgame/pkg/state"
)

func TestParse_WellFormedResponse(t *testing.T) {
	ws := state.NewWorldState()
	result := Parse("剧情: 你好\n选项:\n1. 走\n2. 留", ws)

	assert.Equal(t, "你好", result.Narrative)
	assert.Equal(t, []string{"走", "留"}, result.Options)
	assert.Nil(t, result.NewCharacter)
	assert.Equal(t, ParseOK, result.Quality)

	// parsing appends the narrative as a 系统 event
	require.Len(t, ws.History, 1)
	assert.Equal(t, state.RoleSystem, ws.History[0].Role)
	assert.Equal(t, "你好", ws.History[0].Content)
}

func TestParse_NewCharacterExtraction(t *testing.T) {
	ws := state.NewWorldState()
	raw := "剧情: 酒馆角落坐着一位吟游诗人\n选项:\n1. 上前交谈\n2. 默默观察\n新角色:温迪 爱好自由的吟游诗人"
	result := Parse(raw, ws)

	require.NotNil(t, result.NewCharacter)
	assert.Equal(t, "温迪", result.NewCharacter.Name)
	assert.Equal(t, "爱好自由的吟游诗人", result.NewCharacter.Description)

	// registration happens during parsing
	c, ok := ws.Characters["温迪"]
	require.True(t, ok, "new character not registered into the roster")
	assert.Equal(t, "爱好自由的吟游诗人", c.Traits)
}

func TestParse_NewCharacterOnly(t *testing.T) {
	ws := state.NewWorldState()
	result := Parse("新角色:温迪 爱好自由的吟游诗人", ws)

	require.NotNil(t, result.NewCharacter)
	assert.Equal(t, "温迪", result.NewCharacter.Name)
	assert.Contains(t, ws.Characters, "温迪")
	// no narrative/options markers: fallbacks still produce a usable turn
	assert.NotEmpty(t, result.Narrative)
	assert.GreaterOrEqual(t, len(result.Options), 2)
	assert.Equal(t, ParseDegraded, result.Quality)
}

func TestParse_NewCharacterBeforeNarrative(t *testing.T) {
	ws := state.NewWorldState()
	raw := "新角色:老巫师 穿着灰色长袍\n剧情: 巫师缓缓抬头\n选项:\n1. 问好\n2. 后退"
	result := Parse(raw, ws)

	require.NotNil(t, result.NewCharacter)
	assert.Equal(t, "老巫师", result.NewCharacter.Name)
	assert.Equal(t, "巫师缓缓抬头", result.Narrative)
	assert.Equal(t, []string{"问好", "后退"}, result.Options)
}

func TestParse_OptionsBeforeNewCharacterBlock(t *testing.T) {
	ws := state.NewWorldState()
	raw := "剧情: 一位老人出现了\n选项:\n1. 交谈\n2. 离开\n新角色:老巫师 手持橡木法杖"
	result := Parse(raw, ws)

	assert.Equal(t, []string{"交谈", "离开"}, result.Options)
	require.NotNil(t, result.NewCharacter)
	// the new-character line must not leak into the options
	for _, opt := range result.Options {
		assert.NotContains(t, opt, "新角色")
	}
}

func TestParse_SevenNumberedOptionsCappedAtFive(t *testing.T) {
	ws := state.NewWorldState()
	raw := "剧情: 岔路口\n选项:\n1. 一\n2. 二\n3. 三\n4. 四\n5. 五\n6. 六\n7. 七"
	result := Parse(raw, ws)

	assert.Equal(t, []string{"一", "二", "三", "四", "五"}, result.Options)
}

func TestParse_OptionMarkerVariants(t *testing.T) {
	ws := state.NewWorldState()
	raw := "剧情: 测试\n选项:\n- 减号选项\n* 星号选项\n3) 括号选项"
	result := Parse(raw, ws)

	assert.Equal(t, []string{"减号选项", "星号选项", "括号选项"}, result.Options)
}

func TestParse_MissingOptionsMarker(t *testing.T) {
	ws := state.NewWorldState()
	raw := "剧情: 你走进森林深处\n周围一片寂静"
	result := Parse(raw, ws)

	assert.Contains(t, result.Narrative, "你走进森林深处")
	assert.GreaterOrEqual(t, len(result.Options), 2)
	assert.Equal(t, ParseDegraded, result.Quality)
}

func TestParse_AlternateNarrativeMarker(t *testing.T) {
	ws := state.NewWorldState()
	raw := "描述: 城门缓缓打开\n守卫看着你"
	result := Parse(raw, ws)

	assert.Contains(t, result.Narrative, "城门缓缓打开")
}

func TestParse_CompletelyUnstructuredText(t *testing.T) {
	ws := state.NewWorldState()
	raw := "这是一段完全自由的文本\n没有任何标记\n模型没有遵守格式\n第四行\n第五行"
	result := Parse(raw, ws)

	// never both empty
	assert.NotEmpty(t, result.Narrative)
	assert.GreaterOrEqual(t, len(result.Options), 2)
	assert.Equal(t, ParseDegraded, result.Quality)

	// narrative falls back to the first three lines verbatim
	assert.Equal(t, "这是一段完全自由的文本\n没有任何标记\n模型没有遵守格式", result.Narrative)
}

func TestParse_SingleLineNoMarkersUsesDefaultOptions(t *testing.T) {
	ws := state.NewWorldState()
	result := Parse("只有一行", ws)

	assert.Equal(t, "只有一行", result.Narrative)
	assert.Equal(t, DefaultOptions, result.Options)
}

func TestParse_EmptyOptionsSectionUsesFallback(t *testing.T) {
	ws := state.NewWorldState()
	// options marker present but no list lines under it
	raw := "剧情: 夜色渐深\n选项:\n"
	result := Parse(raw, ws)

	assert.GreaterOrEqual(t, len(result.Options), 2)
	assert.LessOrEqual(t, len(result.Options), 5)
}

func TestParse_FullWidthColons(t *testing.T) {
	ws := state.NewWorldState()
	raw := "剧情：灯火通明\n选项：\n1. 进入\n2. 绕行\n新角色：掌柜 精明的生意人"
	result := Parse(raw, ws)

	assert.Equal(t, "灯火通明", result.Narrative)
	assert.Equal(t, []string{"进入", "绕行"}, result.Options)
	require.NotNil(t, result.NewCharacter)
	assert.Equal(t, "掌柜", result.NewCharacter.Name)
}

func TestParse_NarrativeAlwaysAppendedToHistory(t *testing.T) {
	ws := state.NewWorldState()
	before := len(ws.History)
	Parse("完全没有结构的输出", ws)
	Parse("剧情: 有结构\n选项:\n1. 甲\n2. 乙", ws)

	if got := len(ws.History) - before; got != 2 {
		t.Fatalf("expected 2 appended system events, got %d", got)
	}
	for _, event := range ws.History {
		assert.Equal(t, state.RoleSystem, event.Role)
	}
}

func TestParse_LongResponseKeepsOptionOrder(t *testing.T) {
	ws := state.NewWorldState()
	var b strings.Builder
	b.WriteString("剧情: 大战一触即发\n选项:\n")
	for _, opt := range []string{"迎战", "撤退", "谈判", "埋伏"} {
		b.WriteString("- " + opt + "\n")
	}
	result := Parse(b.String(), ws)
	assert.Equal(t, []string{"迎战", "撤退", "谈判", "埋伏"}, result.Options)
}

func TestRecoveryResult(t *testing.T) {
	result := recoveryResult()
	assert.Equal(t, "解析剧情时出现错误", result.Narrative)
	assert.Equal(t, []string{"重试", "继续"}, result.Options)
	assert.Equal(t, ParseFailed, result.Quality)
	assert.Nil(t, result.NewCharacter)
}

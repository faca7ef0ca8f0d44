package service

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"reflection_sync_backend/internal/config"
	"reflection_sync_backend/internal/model"
	"reflection_sync_backend/pkg/logger"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// AIService 反思反馈与分级指导的生成
// 模型不可用时永远退回确定性的本地启发式，调用方拿到的结果总是可用的，不抛错
type AIService struct {
	mu     sync.RWMutex
	config config.AIConfig
	client *http.Client
	rdb    *redis.Client // 可选的指导语缓存，nil表示未启用
}

func NewAIService(cfg config.AIConfig, rdb *redis.Client) *AIService {
	return &AIService{
		config: cfg,
		client: &http.Client{Timeout: 15 * time.Second},
		rdb:    rdb,
	}
}

// UpdateConfig 配置热更新回调
func (s *AIService) UpdateConfig(cfg config.AIConfig) {
	s.mu.Lock()
	s.config = cfg
	s.mu.Unlock()
}

func (s *AIService) snapshotConfig() config.AIConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.config
}

type AIChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ChatCompletionResponse struct {
	Choices []struct {
		Message AIChatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// FeedbackResult 反馈文本；IsOffline 表示来自本地启发式而非模型
type FeedbackResult struct {
	Text      string `json:"text"`
	IsOffline bool   `json:"isOffline"`
}

// MasteryLevelGuidance 某个掌握等级的说明：guidance 针对真实目标，
// example 是参照目标的示范反思，避免学生照抄
type MasteryLevelGuidance struct {
	Level    int    `json:"level"`
	Guidance string `json:"guidance"`
	Example  string `json:"example"`
}

type MasteryGuidance struct {
	ReferenceGoal string                 `json:"referenceGoal"`
	Levels        []MasteryLevelGuidance `json:"levels"`
	IsOffline     bool                   `json:"isOffline"`
}

// GetFeedback 对学生的反思草稿给出简短的正向反馈
func (s *AIService) GetFeedback(ctx context.Context, subject model.Subject, goalTitle, goalDescription, draft string) FeedbackResult {
	cfg := s.snapshotConfig()
	if cfg.APIKey == "" || cfg.BaseURL == "" {
		return FeedbackResult{Text: localFeedback(draft), IsOffline: true}
	}

	prompt := fmt.Sprintf(
		"Je bent 'Reflectie-Ranger'. Help een kind (8-12j) hun reflectie op %q (%s) te verbeteren.\n"+
			"Leerdoel: %q\n"+
			"Huidige tekst: %q\n"+
			"Geef korte (max 3 zinnen), positieve feedback in het Nederlands. Focus op het toevoegen van voorbeelden en bewijs.",
		goalTitle, subject, goalDescription, draft,
	)

	text, err := s.chat(ctx, cfg, prompt, false)
	if err != nil || text == "" {
		logger.Log.Warn("AI feedback unavailable, using local heuristic", zap.Error(err))
		return FeedbackResult{Text: localFeedback(draft), IsOffline: true}
	}
	return FeedbackResult{Text: text}
}

// GetMasteryGuidance 为目标生成四级掌握说明，等级示例取自另一个参照目标
func (s *AIService) GetMasteryGuidance(ctx context.Context, goalTitle, goalDescription string) MasteryGuidance {
	cacheKey := fmt.Sprintf("ai:guidance:%x", sha1.Sum([]byte(goalTitle+"|"+goalDescription)))
	if cached, ok := s.cachedGuidance(ctx, cacheKey); ok {
		return cached
	}

	cfg := s.snapshotConfig()
	if cfg.APIKey == "" || cfg.BaseURL == "" {
		return defaultMasteryGuidance()
	}

	prompt := fmt.Sprintf(
		"HET ECHTE DOEL: %q: %q\n\n"+
			"TAAK:\n"+
			"1. Bedenk een totaal ANDER lesdoel of een vaardigheid (bijv. \"Leren zwemmen\", \"De Romeinen\", \"Een taart bakken\"). Dit noemen we het REFERENTIEDOEL.\n"+
			"2. Voor de 4 beheersingsniveaus schrijf je:\n"+
			"   - Een korte uitleg ('Ik-kan'-zin) die past bij HET ECHTE DOEL.\n"+
			"   - Een voorbeeld-reflectie die past bij HET REFERENTIEDOEL.\n\n"+
			"WAAROM? Kinderen mogen de tekst niet kunnen overtypen.\n\n"+
			"ANTWOORD IN DIT JSON FORMAT:\n"+
			`{"referenceGoal": "...", "levels": [{"level": 1, "guidance": "...", "example": "..."}, ...]}`,
		goalTitle, goalDescription,
	)

	text, err := s.chat(ctx, cfg, prompt, true)
	if err != nil {
		logger.Log.Warn("AI mastery guidance unavailable, using default", zap.Error(err))
		return defaultMasteryGuidance()
	}

	var guidance MasteryGuidance
	if err := json.Unmarshal([]byte(text), &guidance); err != nil || guidance.ReferenceGoal == "" || len(guidance.Levels) != 4 {
		return defaultMasteryGuidance()
	}

	s.cacheGuidance(ctx, cacheKey, guidance)
	return guidance
}

// chat 对 chat/completions 接口做一次对话补全调用
func (s *AIService) chat(ctx context.Context, cfg config.AIConfig, prompt string, jsonMode bool) (string, error) {
	reqBody := map[string]interface{}{
		"model": cfg.Model,
		"messages": []AIChatMessage{
			{Role: "user", Content: prompt},
		},
	}
	if jsonMode {
		reqBody["response_format"] = map[string]string{"type": "json_object"}
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, cfg.BaseURL+"/chat/completions", bytes.NewBuffer(jsonData))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+cfg.APIKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("AI API error (status %d): %s", resp.StatusCode, string(body))
	}

	var result ChatCompletionResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return "", err
	}
	if len(result.Choices) == 0 {
		return "", fmt.Errorf("AI returned no choices")
	}
	return strings.TrimSpace(result.Choices[0].Message.Content), nil
}

func (s *AIService) cachedGuidance(ctx context.Context, key string) (MasteryGuidance, bool) {
	if s.rdb == nil {
		return MasteryGuidance{}, false
	}
	raw, err := s.rdb.Get(ctx, key).Result()
	if err != nil {
		return MasteryGuidance{}, false
	}
	var guidance MasteryGuidance
	if err := json.Unmarshal([]byte(raw), &guidance); err != nil {
		return MasteryGuidance{}, false
	}
	return guidance, true
}

func (s *AIService) cacheGuidance(ctx context.Context, key string, guidance MasteryGuidance) {
	if s.rdb == nil {
		return
	}
	raw, err := json.Marshal(guidance)
	if err != nil {
		return
	}
	// 缓存失败只记日志，不影响结果
	if err := s.rdb.Set(ctx, key, raw, 24*time.Hour).Err(); err != nil {
		logger.Log.Warn("Failed to cache mastery guidance", zap.Error(err))
	}
}

// localFeedback 离线启发式：看草稿长度、有没有举例和证据的措辞
func localFeedback(draft string) string {
	text := strings.ToLower(draft)
	hasExample := strings.Contains(text, "bijvoorbeeld") || strings.Contains(text, "zoals") ||
		strings.Contains(text, "bijv") || strings.Contains(text, "voorbeeld")
	hasEvidence := strings.Contains(text, "ik kan") || strings.Contains(text, "ik weet") ||
		strings.Contains(text, "snap") || strings.Contains(text, "begrijp") || strings.Contains(text, "bewijs")

	if utf8.RuneCountInString(draft) < 40 {
		return "Je bent goed op weg! Probeer eens wat meer te vertellen over wat je precies hebt gedaan tijdens de les."
	}
	if !hasExample && !hasEvidence {
		return "Goed geschreven! Kun je ook een voorbeeld geven van wat je hebt geleerd? En hoe laat je zien dat je het doel hebt behaald?"
	}
	return "Wauw, wat een complete reflectie! Je geeft goede voorbeelden en laat echt zien wat je hebt geleerd. Super gedaan!"
}

// defaultMasteryGuidance 模型不可用时的固定指导语，参照目标是"band plakken"
func defaultMasteryGuidance() MasteryGuidance {
	return MasteryGuidance{
		ReferenceGoal: "Een band plakken",
		Levels: []MasteryLevelGuidance{
			{Level: 1, Guidance: "Ik vind dit doel nog erg lastig.", Example: "Ik schrijf alleen op dat ik hulp nodig had van de meester."},
			{Level: 2, Guidance: "Ik begrijp kleine stukjes.", Example: "Ik vertel één ding dat ik nu weet, zoals hoe de lijm heet, maar de rest weet ik niet meer."},
			{Level: 3, Guidance: "Ik kan dit doel meestal zelfstandig.", Example: "Ik leg uit hoe ik de band heb geplakt. Ik noem de stappen die ik heb gedaan en vertel dat de band nu weer hard is."},
			{Level: 4, Guidance: "Ik kan dit zelfs aan een ander uitleggen!", Example: "Ik gebruik de goede woorden zoals 'ventiel' en 'solutie'. Ik leg precies uit waarom je moet wachten tot de lijm droog is en hoe ik dit aan een ander zou leren."},
		},
		IsOffline: true,
	}
}

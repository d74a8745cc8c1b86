package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/osa-run/osa/pkg/models"
)

// LoadEnv bootstraps process environment per §6: a `.env` file in the
// working directory, then `<home>/.env`; the project file wins over the
// home file, and any variable already present in the process
// environment wins over both. godotenv.Read (not Load) is used so we
// control precedence explicitly instead of relying on its skip-existing
// behavior alone.
func LoadEnv(workdir, home string) error {
	merged := map[string]string{}

	if home != "" {
		if vars, err := godotenv.Read(filepath.Join(home, ".env")); err == nil {
			for k, v := range vars {
				merged[k] = v
			}
		}
	}
	if workdir != "" {
		if vars, err := godotenv.Read(filepath.Join(workdir, ".env")); err == nil {
			for k, v := range vars {
				merged[k] = v
			}
		}
	}

	for k, v := range merged {
		if _, present := os.LookupEnv(k); present {
			continue
		}
		if err := os.Setenv(k, v); err != nil {
			return err
		}
	}
	return nil
}

// Runtime holds the recognized environment variables from §6, parsed
// into typed fields with their documented defaults.
type Runtime struct {
	DefaultProvider string
	Model           string
	FallbackChain   []string

	DailyBudgetUSD  float64
	MonthlyBudgetUSD float64
	PerCallLimitUSD float64

	TreasuryEnabled   bool
	TreasuryAutoDebit bool
	TreasuryDailyLimit float64
	TreasuryMaxSingle  float64

	RequireAuth    bool
	SharedSecret   string
	PlanMode       bool
	ThinkingEnabled bool
	ThinkingBudget  int
	QuietHours      string

	Home         string
	ListenAddr   string
	StoreDriver  string
	StoreDSN     string
	LogLevel     string
	LogFormat    string

	AnthropicAPIKey string
	OpenAIAPIKey    string
	GeminiAPIKey    string
	BedrockEnabled  bool
	BedrockRegion   string
}

// LoadRuntime reads the §6 environment variables with their documented defaults.
func LoadRuntime() Runtime {
	return Runtime{
		DefaultProvider:    getEnv("OSA_DEFAULT_PROVIDER", "anthropic"),
		Model:              getEnv("OSA_MODEL", ""),
		FallbackChain:      splitCSV(getEnv("OSA_FALLBACK_CHAIN", "")),
		DailyBudgetUSD:     getEnvFloat("OSA_DAILY_BUDGET_USD", 20),
		MonthlyBudgetUSD:   getEnvFloat("OSA_MONTHLY_BUDGET_USD", 300),
		PerCallLimitUSD:    getEnvFloat("OSA_PER_CALL_LIMIT_USD", 2),
		TreasuryEnabled:    getEnvBool("OSA_TREASURY_ENABLED", false),
		TreasuryAutoDebit:  getEnvBool("OSA_TREASURY_AUTO_DEBIT", true),
		TreasuryDailyLimit: getEnvFloat("OSA_TREASURY_DAILY_LIMIT", 50),
		TreasuryMaxSingle:  getEnvFloat("OSA_TREASURY_MAX_SINGLE", 10),
		RequireAuth:        getEnvBool("OSA_REQUIRE_AUTH", false),
		SharedSecret:       getEnv("OSA_SHARED_SECRET", ""),
		PlanMode:           getEnvBool("OSA_PLAN_MODE", false),
		ThinkingEnabled:    getEnvBool("OSA_THINKING_ENABLED", false),
		ThinkingBudget:     int(getEnvFloat("OSA_THINKING_BUDGET", 4096)),
		QuietHours:         getEnv("OSA_QUIET_HOURS", ""),

		Home:        getEnv("OSA_HOME", defaultHome()),
		ListenAddr:  getEnv("OSA_LISTEN_ADDR", ":8089"),
		StoreDriver: getEnv("OSA_STORE_DRIVER", ""),
		StoreDSN:    getEnv("OSA_STORE_DSN", ""),
		LogLevel:    getEnv("OSA_LOG_LEVEL", "info"),
		LogFormat:   getEnv("OSA_LOG_FORMAT", "json"),

		AnthropicAPIKey: getEnv("ANTHROPIC_API_KEY", ""),
		OpenAIAPIKey:    getEnv("OPENAI_API_KEY", ""),
		GeminiAPIKey:    getEnv("GEMINI_API_KEY", getEnv("GOOGLE_API_KEY", "")),
		BedrockEnabled:  getEnvBool("OSA_BEDROCK_ENABLED", false),
		BedrockRegion:   getEnv("AWS_REGION", ""),
	}
}

// defaultHome returns ~/.osa, the default workspace root for session
// transcripts, scheduler config, and task checklists (§4.K, §4.L, §4.J),
// mirroring the donor's ~/.nexus convention.
func defaultHome() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".osa"
	}
	return filepath.Join(home, ".osa")
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func getEnvFloat(key string, def float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}

func splitCSV(v string) []string {
	if strings.TrimSpace(v) == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// ParseQuietHours parses "HH:MM-HH:MM[,HH:MM-HH:MM]" into QuietHourRange
// values (§8 property 12). No scheduler or heartbeat code consults them.
func ParseQuietHours(spec string) []models.QuietHourRange {
	if strings.TrimSpace(spec) == "" {
		return nil
	}
	var ranges []models.QuietHourRange
	for _, part := range strings.Split(spec, ",") {
		part = strings.TrimSpace(part)
		halves := strings.SplitN(part, "-", 2)
		if len(halves) != 2 {
			continue
		}
		start, ok1 := parseHHMM(halves[0])
		end, ok2 := parseHHMM(halves[1])
		if !ok1 || !ok2 {
			continue
		}
		ranges = append(ranges, models.QuietHourRange{
			StartHour: start.h, StartMinute: start.m,
			EndHour: end.h, EndMinute: end.m,
		})
	}
	return ranges
}

type hhmm struct{ h, m int }

func parseHHMM(s string) (hhmm, bool) {
	t, err := time.Parse("15:04", strings.TrimSpace(s))
	if err != nil {
		return hhmm{}, false
	}
	return hhmm{h: t.Hour(), m: t.Minute()}, true
}

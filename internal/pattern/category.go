package pattern

import "strings"

// Category classifies what kind of code pattern a memory describes.
type Category string

// Recognized categories. Each owns a fixed band on the first coordinate
// axis, so the set and its order are part of the coordinate contract and
// must stay stable.
const (
	CategoryAuthentication      Category = "authentication"
	CategoryAuthorization       Category = "authorization"
	CategoryCaching             Category = "caching"
	CategoryConcurrency         Category = "concurrency"
	CategoryErrorHandling       Category = "error_handling"
	CategoryValidation          Category = "validation"
	CategoryLogging             Category = "logging"
	CategorySerialization       Category = "serialization"
	CategoryNetworking          Category = "networking"
	CategoryPersistence         Category = "persistence"
	CategoryConfiguration       Category = "configuration"
	CategoryTesting             Category = "testing"
	CategorySecurity            Category = "security"
	CategoryPerformance         Category = "performance"
	CategoryDataFlow            Category = "data_flow"
	CategoryStateManagement     Category = "state_management"
	CategoryDependencyInjection Category = "dependency_injection"
	CategoryMessaging           Category = "messaging"
	CategoryScheduling          Category = "scheduling"
	CategoryAPIDesign           Category = "api_design"

	// CategoryNeutral is the fallback for unrecognized categories and
	// free-form seeds that match no heuristic. It maps to the center of
	// the category axis rather than a band of its own.
	CategoryNeutral Category = "neutral"
)

// categories lists recognized categories in band order.
var categories = []Category{
	CategoryAuthentication,
	CategoryAuthorization,
	CategoryCaching,
	CategoryConcurrency,
	CategoryErrorHandling,
	CategoryValidation,
	CategoryLogging,
	CategorySerialization,
	CategoryNetworking,
	CategoryPersistence,
	CategoryConfiguration,
	CategoryTesting,
	CategorySecurity,
	CategoryPerformance,
	CategoryDataFlow,
	CategoryStateManagement,
	CategoryDependencyInjection,
	CategoryMessaging,
	CategoryScheduling,
	CategoryAPIDesign,
}

// categoryIndex maps a category to its band position.
var categoryIndex = func() map[Category]int {
	m := make(map[Category]int, len(categories))
	for i, c := range categories {
		m[c] = i
	}
	return m
}()

// Categories returns the recognized categories in band order.
// The returned slice is a copy.
func Categories() []Category {
	out := make([]Category, len(categories))
	copy(out, categories)
	return out
}

// CategoryCount is the number of recognized categories.
func CategoryCount() int {
	return len(categories)
}

// Recognized reports whether c is one of the recognized categories.
// CategoryNeutral is not recognized; it is the absence of a band.
func (c Category) Recognized() bool {
	_, ok := categoryIndex[c]
	return ok
}

// BandIndex returns the band position of c and whether c owns a band.
func (c Category) BandIndex() (int, bool) {
	i, ok := categoryIndex[c]
	return i, ok
}

// categoryKeywords drive the free-form seed and tag heuristics. First
// match in band order wins, so the mapping is deterministic.
var categoryKeywords = map[Category][]string{
	CategoryAuthentication:      {"authentication", "auth", "login", "credential", "session", "oauth", "jwt", "token"},
	CategoryAuthorization:       {"authorization", "permission", "rbac", "access control", "policy", "role"},
	CategoryCaching:             {"caching", "cache", "memoiz", "ttl", "eviction", "lru"},
	CategoryConcurrency:         {"concurrency", "mutex", "goroutine", "thread", "lock", "atomic", "race", "parallel"},
	CategoryErrorHandling:       {"error_handling", "error", "panic", "recover", "retry", "exception", "fallback"},
	CategoryValidation:          {"validation", "validate", "sanitize", "schema check", "constraint"},
	CategoryLogging:             {"logging", "log", "trace", "audit trail"},
	CategorySerialization:       {"serialization", "serialize", "marshal", "encode", "decode", "json", "protobuf", "codec"},
	CategoryNetworking:          {"networking", "network", "http", "grpc", "socket", "tcp", "dns", "request"},
	CategoryPersistence:         {"persistence", "database", "storage", "repository", "sql", "transaction", "migration"},
	CategoryConfiguration:       {"configuration", "config", "settings", "environment variable", "flag"},
	CategoryTesting:             {"testing", "test", "mock", "fixture", "assertion", "coverage"},
	CategorySecurity:            {"security", "encrypt", "secret", "sanitiz", "injection", "vulnerab", "tls"},
	CategoryPerformance:         {"performance", "optimiz", "latency", "throughput", "profil", "benchmark"},
	CategoryDataFlow:            {"data_flow", "pipeline", "transform", "etl", "stream", "mapper"},
	CategoryStateManagement:     {"state_management", "state machine", "lifecycle", "snapshot", "immutable"},
	CategoryDependencyInjection: {"dependency_injection", "dependency", "inject", "wiring", "container", "provider"},
	CategoryMessaging:           {"messaging", "queue", "publish", "subscribe", "broker", "event bus"},
	CategoryScheduling:          {"scheduling", "scheduler", "cron", "ticker", "periodic", "background job"},
	CategoryAPIDesign:           {"api_design", "api", "endpoint", "handler", "rest", "interface design"},
}

// CategoryFromText maps free-form text onto a recognized category using
// the same keyword heuristics applied to stored tags. Unmatched text maps
// to CategoryNeutral; that is the documented fallback, not an error.
func CategoryFromText(text string) Category {
	t := strings.ToLower(strings.TrimSpace(text))
	if t == "" {
		return CategoryNeutral
	}
	if c := Category(t); c.Recognized() {
		return c
	}
	for _, c := range categories {
		for _, kw := range categoryKeywords[c] {
			if strings.Contains(t, kw) {
				return c
			}
		}
	}
	return CategoryNeutral
}

// relatedCategories is the adjacency table used by interference scoring.
// Adjacency is a plain domain judgment (auth relates to security, caching
// to performance) and is kept symmetric by RelatedCategories.
var relatedCategories = map[Category][]Category{
	CategoryAuthentication:      {CategoryAuthorization, CategorySecurity},
	CategoryAuthorization:       {CategoryAuthentication, CategorySecurity},
	CategoryCaching:             {CategoryPerformance, CategoryPersistence},
	CategoryConcurrency:         {CategoryStateManagement, CategoryScheduling, CategoryPerformance},
	CategoryErrorHandling:       {CategoryLogging, CategoryValidation},
	CategoryValidation:          {CategoryErrorHandling, CategoryTesting, CategorySecurity},
	CategoryLogging:             {CategoryErrorHandling, CategoryConfiguration},
	CategorySerialization:       {CategoryDataFlow, CategoryAPIDesign, CategoryNetworking},
	CategoryNetworking:          {CategoryMessaging, CategoryAPIDesign, CategorySerialization},
	CategoryPersistence:         {CategoryCaching, CategoryDataFlow},
	CategoryConfiguration:       {CategoryDependencyInjection, CategoryLogging},
	CategoryTesting:             {CategoryValidation, CategoryDependencyInjection},
	CategorySecurity:            {CategoryAuthentication, CategoryAuthorization, CategoryValidation},
	CategoryPerformance:         {CategoryCaching, CategoryConcurrency},
	CategoryDataFlow:            {CategorySerialization, CategoryPersistence, CategoryMessaging},
	CategoryStateManagement:     {CategoryConcurrency, CategoryPersistence},
	CategoryDependencyInjection: {CategoryConfiguration, CategoryTesting},
	CategoryMessaging:           {CategoryNetworking, CategoryDataFlow, CategoryScheduling},
	CategoryScheduling:          {CategoryConcurrency, CategoryMessaging},
	CategoryAPIDesign:           {CategoryNetworking, CategorySerialization},
}

// RelatedCategories reports whether two categories are the same or
// adjacent in the relatedness table. The check is symmetric.
func RelatedCategories(a, b Category) bool {
	if a == b {
		return true
	}
	for _, r := range relatedCategories[a] {
		if r == b {
			return true
		}
	}
	for _, r := range relatedCategories[b] {
		if r == a {
			return true
		}
	}
	return false
}

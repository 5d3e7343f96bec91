package services

// Compile-time interface checks
var (
	_ MarketDataProvider = (*YahooProvider)(nil)
	_ MarketDataProvider = (*AlphaVantageProvider)(nil)
	_ MarketDataProvider = (*AlpacaProvider)(nil)

	_ LLMClient = (*AnthropicClient)(nil)
	_ LLMClient = (*OpenAIClient)(nil)
	_ LLMClient = (*GeminiClient)(nil)
	_ LLMClient = (*BedrockClient)(nil)
	_ LLMClient = (*retryingLLMClient)(nil)
)

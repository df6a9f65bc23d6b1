// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
//   - KnowledgeBase: The TB drug knowledge graph (Neo4j, SQLite or memory)
//   - PromptRenderer: Renders the answer-synthesis prompt
//   - ConfigStore: Application configuration
//
// # Optional Interfaces
//
// These can be nil - the pipeline degrades gracefully:
//
//   - LLMService: Without it questions are never LLM-split, intents fall back to rules and
//     defaults, and answers are empty.
//   - EntityTagger: Without it entity resolution starts at the context fallback.
//   - DependencyParser: Without it the coordinate splits never fire.
//   - PromptStore: Without it embedded default prompts are used.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter package
package driven

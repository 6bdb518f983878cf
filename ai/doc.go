// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package ai provides abstractions for the embedding model used by rostermatch.
//
// The core never calls a model library directly. It depends on the Embedder
// interface defined here, and a concrete EmbeddingProvider is injected at
// startup. This keeps the matcher testable with deterministic fakes and lets
// the model backend change without touching ranking or caching code.
//
// # Implementation Packages
//
//   - ai/openai: production implementation for OpenAI-compatible embedding APIs
//     (OpenAI, Ollama, LocalAI, vLLM)
//   - ai/mock: test doubles with deterministic vectors and call counting
//
// # Constructor Return Type Pattern
//
// Public production constructors (openai.NewProvider, openai.NewEmbedder)
// return INTERFACE types. Test constructors (mock.NewMockEmbedder) return
// CONCRETE types so tests can inspect call counts and inject behavior.
//
//	provider, err := openai.NewProvider(ai.NewConfig())  // returns ai.EmbeddingProvider
//	mockEmbed := mock.NewMockEmbedder()                   // returns *mock.MockEmbedder
//
// # Lifecycle
//
// A provider is created once per process. Model cold start happens at most
// once, and the same Embedder serves every subsequent call.
//
//	provider, err := openai.NewProvider(ai.NewConfig(ai.WithEmbeddingModel("all-minilm")))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer provider.Close()
//
//	vectors, err := provider.Embedder().EmbedTexts(ctx, []string{"machine learning"})
package ai

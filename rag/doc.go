// Copyright 2025-2026 AgentFlow Authors. All rights reserved.
// Use of this source code is governed by the project license.

/*
Package rag implements the runtime's retrieval-augmented-generation
surface: document chunking, an in-process vector index, and a semantic
cache, fronted by the vector.Router dimension-routing layer for the
embedding-storage leg of RAG.Ingest/RAG.Search.

This is a dimension-routed in-process vector index with a semantic cache
and a document chunker, not a multi-provider RAG platform: there is no
query routing, multi-hop reasoning, reranking, graph RAG, or external
vector database integration here.

# Core interfaces

  - RAG — the script-facing facade: Ingest / Search / CleanupScope /
    CreateSessionCollection / Configure / ListProviders / GetStats
  - VectorStore — document-store contract behind SemanticCache
    (AddDocuments / Search / DeleteDocuments / UpdateDocument / Count)
  - VectorIndex — in-process nearest-neighbor index contract, implemented
    by HNSWIndex
  - Tokenizer — token counting for chunk-size accounting

# Capabilities

  - Document chunking: fixed, recursive, semantic, and document-aware strategies (DocumentChunker)
  - In-process HNSW index (HNSWIndex) and flat in-memory store (InMemoryVectorStore)
  - Semantic cache: similarity-threshold query-result cache (SemanticCache)
  - Scope-enforced ingest/search/cleanup over vector.Router, keyed by
    Global/Tenant(id)/Session(id)/Custom(id) (RAG)
*/
package rag

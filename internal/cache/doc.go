// Copyright 2024 AgentFlow Authors. All rights reserved.
// Use of this source code is governed by an MIT license that can be
// found in the LICENSE file.

/*
Package cache provides Redis-backed cache management with connection
pooling, health checks, JSON (de)serialization, and stats collection.

# Overview

This package wraps the go-redis client behind a single read/write
interface. Manager owns the connection lifecycle: initialization,
periodic health checks, and graceful shutdown. Connections are made
without TLS; Config has no TLS option.

# Core types

  - Manager: holds the Redis client and pool configuration, exposes
    Get/Set/Delete/Exists/Expire plus the GetJSON/SetJSON
    serialization helpers.
  - Config: address, password, DB index, retries, pool size, default
    TTL, and health-check interval.
  - Stats: hits, misses, key count, memory usage, and connection count.
    GetStats issues the INFO call but returns these fields zero-valued.

# Capabilities

  - String and JSON key/value storage.
  - Connection pooling via PoolSize and MinIdleConns.
  - Background health checks that log via zap on failure.
  - Graceful shutdown through Close.
  - ErrCacheMiss sentinel error and the IsCacheMiss helper.
*/
package cache

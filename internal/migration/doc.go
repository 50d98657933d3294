// Copyright 2024 AgentFlow Authors. All rights reserved.
// Use of this source code is governed by an MIT license that can be
// found in the LICENSE file.

/*
Package migration provides database schema migration management for
PostgreSQL, MySQL, and SQLite, built on golang-migrate.

# Overview

Migration files for each dialect are embedded via embed.FS and driven
through the golang-migrate engine, giving versioned schema changes:
forward migration, rollback, step-wise execution, jumping to a
specific version, and forcing a version number.

# Core interfaces and types

  - Migrator: the migration interface — Up/Down/DownAll/Steps/Goto/
    Force/Version/Status/Info/Close.
  - DefaultMigrator: the default Migrator implementation, wrapping a
    golang-migrate instance and its database connection.
  - Config: database type, connection URL, migrations table name, and
    lock timeout.
  - DatabaseType: the postgres/mysql/sqlite enum.
  - MigrationStatus / MigrationInfo: per-migration and summary state.
  - CLI: a terminal-facing wrapper around Migrator with formatted
    output.

# Capabilities

  - Multi-database support: DatabaseType selects the embedded SQL set
    for the right dialect.
  - Factory functions: NewMigratorFromConfig / NewMigratorFromDatabaseConfig /
    NewMigratorFromURL build a migrator from different configuration
    sources.
  - CLI integration: RunUp/RunDown/RunStatus/RunInfo for terminal use.
  - Helpers: ParseDatabaseType parses a type string, BuildDatabaseURL
    assembles a dialect-specific connection URL.
*/
package migration

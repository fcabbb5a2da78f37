/*
Package ports defines the driven ports (interfaces) for the flowd engine.

These interfaces decouple the core logic from external implementations,
allowing the engine to work with various storage backends, ledgers, signing
identities and schema sources.

# Key Interfaces

  - ProcessStore / ScenarioStore: persistence for processes and scenarios.
  - ProcessLocker: distributed locking to serialize steps per process ID.
  - EventChainService / Ledger: append-only hash-chained event storage.
  - Signer: signing identity for chain events.
  - SchemaSource: resolution of schema URLs to local documents.
*/
package ports

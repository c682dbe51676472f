// SPDX-FileCopyrightText: © 2026 Katzenpost Developers
// SPDX-License-Identifier: AGPL-3.0-only

/*
Package discovery implements the client side of private contact discovery.

# Introduction

A client holds a set of E.164 phone numbers and wants to learn which of
them belong to registered users, without handing the full address book to
the service operator.  The lookup is answered by a remotely attested
enclave: the client encrypts its query under a fresh symmetric key, wraps
that key for every attested enclave, and only the enclave that answers can
produce a response the client is able to decrypt.

# Protocol

Discover splits the input into batches of at most BatchSize numbers and
runs every batch concurrently:

  - attest: obtain per enclave request ids and keys from the Attestor
  - build: BuildIntersectionQuery encrypts 32 random bytes followed by the
    8 byte big endian encoding of every number, wraps the query key per
    enclave bound to its request id, and commits to the plaintext
  - send: the Service performs a single round trip
  - decode: DecodeIntersectionResponse matches the answering enclave by
    request id, decrypts with its server key and zips the 16 byte UUIDs
    against the batch in request order; the all zero UUID means not
    registered

The union of all batch results is returned only when every batch has
succeeded.

# Errors

Failures reaching the caller are either network connectivity failures,
passed through untouched, or an *Error carrying a Kind, a retryable flag
and an optional retry deadline.  Classify performs the mapping from
transport status codes exactly once, at the boundary.  Retrier drives the
backoff loop that honours those deadlines.
*/
package discovery

// Package federation contains the shared types of the federated
// abuse-reputation service: record models, the cache and store contracts,
// the error taxonomy and UUID/host/API-key primitives. Backends (mysql,
// redis, fs, aws_s3) and the managers in registry build on this package.
package federation

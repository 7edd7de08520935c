// Package listener hosts application handlers inside managed deployments and
// tracks which running server owns which deployment.
//
// RegisterHandler deploys and starts a Deployment around the handler, starts
// a server through a Builder with the deployment as its root handler, and
// records the pair. UnregisterHandler undeploys by server ID. Servers are not
// stopped here; their owner shuts them down.
package listener

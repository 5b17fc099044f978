// Package containers starts throwaway infrastructure for integration tests
// using testcontainers-go:
//
//   - MySQL 8 for the datastore repositories
//   - Eclipse Mosquitto for the MQTT sensor bridge
//   - NATS for outcome event publishing
//   - ntfy for ticket push notifications
//
// Containers are usually shared per package from TestMain:
//
//	var broker *containers.MosquittoContainer
//
//	func TestMain(m *testing.M) {
//	    var err error
//	    broker, err = containers.NewMosquittoContainer(context.Background(), nil)
//	    if err != nil {
//	        panic(err)
//	    }
//	    code := m.Run()
//	    _ = broker.Terminate(context.Background())
//	    os.Exit(code)
//	}
//
// Everything here is behind the "integration" build tag:
//
//	go test -tags=integration ./...
//
//nolint:misspell // Mosquitto is the official Eclipse project name
package containers

// Package mlsub provides a client for the mlsub TV recording reservation API.
//
// The upstream service is an ad-hoc PHP REST API: every operation is a
// form-encoded POST answered by a JSON envelope with a top-level response_code
// field. Payload typing is loose — identifiers flip between strings and
// numbers, dates arrive in locale-specific formats, and some fields disappear
// between calls — so this package validates and coerces each payload into
// strongly-typed records at the boundary.
//
// # Usage
//
// Create a client and log in before any authenticated call:
//
//	logger := zerolog.New(os.Stderr)
//	client, err := mlsub.NewClient(logger)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	ctx := context.Background()
//	if _, err := client.Login(ctx, "user", "pass"); err != nil {
//		log.Fatal(err)
//	}
//
//	channels, err := client.Channels(ctx, mlsub.NetworkKanto)
//	if err != nil {
//		log.Fatal(err)
//	}
//	events, err := client.ChannelEvents(ctx, channels[0])
//
// One client holds one logical session. The token stored by Login is sent
// with every later call; there is no automatic re-authentication, so when an
// authenticated call fails with an APIError whose IsAuthFailure reports true,
// call Login again. EPG and reserve tokens are likewise short-lived and are
// refreshed by re-fetching the channel list or the EPG.
//
// # Error Handling
//
// The package distinguishes four failure kinds:
//
//   - HTTPError: the server answered with a non-2xx HTTP status
//   - MalformedResponseError: the body was not JSON, or lacked response_code
//   - APIError: the envelope reported a non-success code; carries the full
//     decoded envelope
//   - EntityError: the envelope was successful but a payload field was
//     missing, mistyped or unparsable; carries the field name and value
//
// Errors are never retried and never swallowed, with one exception: IsOnline
// converts API and payload-shape failures into false.
package mlsub

// Package upstream is the resilient client for the third-party items and
// users API.
//
// # Overview
//
// Every call goes through [Client.Do], which runs each attempt under a
// [retry.Policy]:
//
//	client, err := upstream.NewClient(settings, upstream.WithLogger(logger))
//	resp := client.Get(ctx, "/items", url.Values{"page_size": {"25"}})
//	if !resp.Success {
//	    log.Error("list failed", "kind", resp.Err.Kind)
//	}
//
// Non-2xx responses become [retry.StatusError] values and are classified
// by status code; transport failures are classified by error type. The
// returned [Response] always carries the number of attempts made.
//
// # Typed helpers
//
// The items API is cursor paginated. [Client.ListAllItems] walks every page
// lazily:
//
//	for item, err := range client.ListAllItems(ctx, 50) {
//	    if err != nil {
//	        return err
//	    }
//	    fmt.Println(item.ID, item.Name)
//	}
//
// The users API validates and sanitizes input before sending anything.
// Invalid input yields a failed Response of kind validation with
// Attempts == 0.
//
// # Transport stack
//
// Requests pass through, outermost first: the retry loop, an
// [httputil.Transport] reporting to observability hooks, and a
// [security.Signer] adding request IDs, nonces and signatures.
package upstream

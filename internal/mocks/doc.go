// Package mocks provides centralized mock implementations for testing.
//
// Mocks use function fields so a test overrides only the behavior it cares
// about. Unset functions fall back to the default response fields.
//
//	import "github.com/phrazzld/shelf-api/internal/mocks"
//
//	func TestSomething(t *testing.T) {
//	    st := &mocks.MockEntityStore{
//	        GetAuthorFn: func(ctx context.Context, id int) (*domain.Author, error) {
//	            return nil, store.ErrAuthorNotFound
//	        },
//	    }
//
//	    // Use the mock in your test...
//	}
//
// When adding a new mock to this package:
//  1. Create a new file named after the interface being mocked
//  2. Implement the mock struct with function fields for each interface method
//  3. Document any helper methods or special functionality
package mocks

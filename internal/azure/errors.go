package azure

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"

	"github.com/yairfalse/vmportal/pkg/resource"
)

// wrap annotates err with op. A 404 from the management plane also matches
// resource.ErrNotFound.
func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	var respErr *azcore.ResponseError
	if errors.As(err, &respErr) && respErr.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%s: %w: %w", op, resource.ErrNotFound, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

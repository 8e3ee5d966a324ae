package api

import (
	"io"
	"mime/multipart"

	"examprep/app/service/ingest"

	"github.com/gofiber/fiber/v2"
	"github.com/samber/oops"
)

// formFiles reads every file of a multipart field. A request that is not
// multipart yields no files.
func formFiles(c *fiber.Ctx, field string) ([]ingest.File, error) {
	form, err := c.MultipartForm()
	if err != nil {
		return nil, nil
	}

	headers := form.File[field]
	result := make([]ingest.File, 0, len(headers))

	for _, header := range headers {
		data, err := readFile(header)
		if err != nil {
			return nil, oops.
				In("api").
				Public("failed to read uploaded file").
				Wrapf(err, "failed to read %s", header.Filename)
		}

		result = append(result, ingest.File{
			Name: header.Filename,
			Data: data,
		})
	}

	return result, nil
}

func readFile(header *multipart.FileHeader) ([]byte, error) {
	f, err := header.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return io.ReadAll(f)
}

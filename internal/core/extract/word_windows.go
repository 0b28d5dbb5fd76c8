//go:build windows

package extract

import (
	"context"
	"fmt"
	"path/filepath"

	ole "github.com/go-ole/go-ole"
	"github.com/go-ole/go-ole/oleutil"
)

// extractDocWithWordAutomation drives an installed Microsoft Word through COM
// to read a legacy .doc file. Word is opened invisibly and quit afterwards.
func extractDocWithWordAutomation(_ context.Context, path string) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("word automation panicked: %v", r)
		}
	}()

	if err := ole.CoInitializeEx(0, ole.COINIT_APARTMENTTHREADED); err != nil {
		return "", fmt.Errorf("com init: %w", err)
	}
	defer ole.CoUninitialize()

	unknown, err := oleutil.CreateObject("Word.Application")
	if err != nil {
		return "", fmt.Errorf("word not installed: %w", err)
	}
	word, err := unknown.QueryInterface(ole.IID_IDispatch)
	if err != nil {
		return "", fmt.Errorf("word dispatch: %w", err)
	}
	defer word.Release()
	defer oleutil.CallMethod(word, "Quit")

	oleutil.PutProperty(word, "Visible", false)

	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}

	docs := oleutil.MustGetProperty(word, "Documents").ToIDispatch()
	defer docs.Release()

	docVar, err := oleutil.CallMethod(docs, "Open", abs, false, true)
	if err != nil {
		return "", fmt.Errorf("word open: %w", err)
	}
	doc := docVar.ToIDispatch()
	defer oleutil.CallMethod(doc, "Close", false)
	defer doc.Release()

	content := oleutil.MustGetProperty(doc, "Content").ToIDispatch()
	defer content.Release()

	return oleutil.MustGetProperty(content, "Text").ToString(), nil
}

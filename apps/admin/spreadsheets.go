package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/trezcool/eteeap/core/applicant"
	"github.com/trezcool/eteeap/services/spreadsheet"
)

func (cli *commandLine) exportApplicants(path, status string) (err error) {
	filter := applicant.QueryFilter{Status: applicant.Status(status)}
	filter.Clean()

	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "creating report file")
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()

	if err = cli.reporter.WriteApplicantsReport(context.Background(), f, filter); err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "Report written to %s\n", path)
	return nil
}

func (cli *commandLine) importCourses(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrap(err, "opening courses file")
	}
	defer f.Close()

	rows, err := spreadsheet.ReadRows(f, filepath.Base(path))
	if err != nil {
		return err
	}
	report, err := cli.courseSvc.ImportCourses(context.Background(), rows)
	if err != nil {
		return err
	}

	fmt.Fprintf(cli.out, "%d created, %d skipped, %d errors\n", len(report.Created), len(report.Skipped), len(report.Errors))
	for _, rowErr := range report.Errors {
		fmt.Fprintf(cli.out, "  row %d: %s\n", rowErr.Row, rowErr.Error)
	}
	return nil
}

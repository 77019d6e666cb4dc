package main

import "context"

func (cli *commandLine) promote(rolls []string) error {
	count, err := cli.acadSvc.Promote(context.Background(), rolls)
	if err != nil {
		return err
	}
	logger.Printf("promoted %d student(s)", count)
	return nil
}

func (cli *commandLine) demote(rolls []string) error {
	count, err := cli.acadSvc.Demote(context.Background(), rolls)
	if err != nil {
		return err
	}
	logger.Printf("demoted %d student(s)", count)
	return nil
}

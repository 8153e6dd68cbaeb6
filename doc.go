// Copyright 2020 Nick White.
// Use of this source code is governed by the GPLv3
// license that can be found in the LICENSE file.

/*
The nbhood package contains tools and functions for neighbourhood
processing of gridded fields, such as forecast precipitation or
temperature: replacing every grid cell with the mean of the cells in a
square around it. This smooths out detail finer than the
neighbourhood, which is often more honest than the raw grid.

Introduction

The processing itself is done by the neighbourhood package, using
summed-area tables from the integralimg package so that the cost of
each cell doesn't depend on the size of the neighbourhood. Fields are
read and written as NetCDF or images by the field package.

Presuming you have the go tools installed, you can install the tools
with this command:
  go install rescribe.xyz/nbhood/cmd/...

All of the tools will give information on what they do and how they
work with the '-h' flag, so for example to get usage information on
the nbhood tool simply run the following:
  nbhood -h

Local processing

To smooth a field locally, just run nbhood on a NetCDF file, giving the
variable to process and the radius of the neighbourhood in metres:
  nbhood -var precipitation_rate -r 10000 in.nc out.nc

Images can be used in the same way, with the size of each pixel in
metres given with the -grid flag. The -g and -pdf flags will also draw
a graph of one row of the field before and after smoothing, and a PDF
report comparing the two.

Distributed processing

For large numbers of fields the processing can be split between many
computers, using Amazon's S3 for storage and SQS as a queue of jobs.
The bucket and queue names are set in cloudsettings.go, and can be
overridden in the settings file (~/.config/nbhood/settings.toml), which
looks like this:
  region = "eu-west-2"
  bucket = "nbhoodfields"
  queue = "nbhoodsmooth"
  radius = 2500.0
  workers = 4

Set up your ~/.aws/credentials appropriately, then create the bucket
and queue with:
  mkpipeline

Fields are then uploaded and queued with addtonbhood:
  addtonbhood -var precipitation_rate -r 10000 forecast.nc run1

Each nbhoodworker process watches the queue, downloads each field that
is added to it, smooths it and uploads the result next to the original
with a "_nbhood" suffix. A worker that dies part way through a job will
stop sending heartbeats to the queue, so the job will soon be picked up
by another worker. Progress can be checked with lsnbhood, and once
the jobs are done the results can be fetched with getnbhood:
  getnbhood run1

Fields and results that are no longer needed can be removed from
storage with rmnbhood.
*/
package nbhood
